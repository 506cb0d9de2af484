// Package hubspot implements the CRMClient and TokenExchanger ports against
// the HubSpot CRM v3 REST API. Methods return real errors
// (*driven.RemoteError when a response was received); failure policy is the
// application layer's business.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// DefaultBaseURL is the production HubSpot API origin.
const DefaultBaseURL = "https://api.hubapi.com"

// contactToCompany is the fixed association-type label linking a contact to
// its company.
const contactToCompany = "contact_to_company"

// Compile-time interface satisfaction check.
var _ driven.CRMClient = (*Client)(nil)

// Client talks to the HubSpot CRM v3 object endpoints. The access token is
// supplied per call; the client itself holds no credential state.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a Client against the production API with a per-call
// transport timeout, so a hung remote call cannot block a run indefinitely.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

// searchRequest is the CRM v3 search payload: one filter group with one
// exact-match filter.
type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int `json:"total"`
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

func exactMatch(property, value string) searchRequest {
	return searchRequest{
		FilterGroups: []filterGroup{
			{Filters: []filter{{PropertyName: property, Operator: "EQ", Value: value}}},
		},
	}
}

// SearchContactByEmail reports whether at least one contact matches the email
// exactly.
func (c *Client) SearchContactByEmail(ctx context.Context, email, token string) (bool, error) {
	var resp searchResponse
	err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts/search", token, exactMatch("email", email), &resp)
	if err != nil {
		return false, fmt.Errorf("search contact by email: %w", err)
	}
	return resp.Total > 0, nil
}

// SearchCompanyByName returns the id of a company whose name matches exactly,
// or "" when none exists.
func (c *Client) SearchCompanyByName(ctx context.Context, name, token string) (string, error) {
	var resp searchResponse
	err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/companies/search", token, exactMatch("name", name), &resp)
	if err != nil {
		return "", fmt.Errorf("search company by name: %w", err)
	}
	if resp.Total == 0 || len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].ID, nil
}

type createContactRequest struct {
	Properties model.ContactProperties `json:"properties"`
}

type createContactResponse struct {
	ID         string                  `json:"id"`
	Properties model.ContactProperties `json:"properties"`
}

// CreateContact creates a contact with the given properties and returns its
// remote representation.
func (c *Client) CreateContact(ctx context.Context, props model.ContactProperties, token string) (*model.Contact, error) {
	var resp createContactResponse
	err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/contacts", token, createContactRequest{Properties: props}, &resp)
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return &model.Contact{ID: resp.ID, Properties: resp.Properties}, nil
}

type createCompanyRequest struct {
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type createCompanyResponse struct {
	ID string `json:"id"`
}

// CreateCompany creates a company with the given name and returns its id.
func (c *Client) CreateCompany(ctx context.Context, name, token string) (string, error) {
	var req createCompanyRequest
	req.Properties.Name = name

	var resp createCompanyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/crm/v3/objects/companies", token, req, &resp); err != nil {
		return "", fmt.Errorf("create company: %w", err)
	}
	return resp.ID, nil
}

// AssociateContactWithCompany links the two objects with the fixed
// contact-to-company association type. The request body is empty.
func (c *Client) AssociateContactWithCompany(ctx context.Context, contactID, companyID, token string) error {
	path := fmt.Sprintf("/crm/v3/objects/contacts/%s/associations/companies/%s/%s",
		contactID, companyID, contactToCompany)
	if err := c.doJSON(ctx, http.MethodPut, path, token, nil, nil); err != nil {
		return fmt.Errorf("associate contact with company: %w", err)
	}
	return nil
}

// doJSON performs one authenticated JSON round trip. body and out may be nil.
// Non-2xx responses become *driven.RemoteError with the response body attached.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &driven.RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
