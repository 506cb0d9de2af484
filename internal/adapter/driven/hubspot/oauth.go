package hubspot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// Endpoint is HubSpot's OAuth2 endpoint pair. Client credentials go in the
// form-encoded POST body, not a basic-auth header.
var Endpoint = oauth2.Endpoint{
	AuthURL:   "https://app.hubspot.com/oauth/authorize",
	TokenURL:  DefaultBaseURL + "/oauth/v1/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// Compile-time interface satisfaction check.
var _ driven.TokenExchanger = (*Authenticator)(nil)

// Authenticator performs the authorization_code and refresh_token grants
// against the HubSpot token endpoint.
type Authenticator struct {
	cfg *oauth2.Config
}

// NewAuthenticator creates an Authenticator against the production endpoints.
func NewAuthenticator(clientID, clientSecret, redirectURI string, scopes []string) *Authenticator {
	return NewAuthenticatorWithEndpoint(clientID, clientSecret, redirectURI, scopes, Endpoint)
}

// NewAuthenticatorWithEndpoint creates an Authenticator against custom
// endpoints. Intended for testing against an httptest token server.
func NewAuthenticatorWithEndpoint(clientID, clientSecret, redirectURI string, scopes []string, endpoint oauth2.Endpoint) *Authenticator {
	return &Authenticator{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
	}
}

// AuthorizeURL builds the URL users visit to grant access, carrying the
// client id, scopes, redirect URI, and the given anti-forgery state.
func (a *Authenticator) AuthorizeURL(state string) string {
	return a.cfg.AuthCodeURL(state)
}

// Exchange performs the authorization_code grant.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*model.Credential, error) {
	tok, err := a.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, grantError("authorization_code", err)
	}
	return credentialFromToken(tok), nil
}

// Refresh performs the refresh_token grant.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*model.Credential, error) {
	src := a.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, grantError("refresh_token", err)
	}
	return credentialFromToken(tok), nil
}

// credentialFromToken maps an oauth2 token onto the domain credential,
// preferring the provider's raw expires_in over the derived Expiry.
func credentialFromToken(tok *oauth2.Token) *model.Credential {
	cred := &model.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}

	if v, ok := tok.Extra("expires_in").(float64); ok && v > 0 {
		cred.ExpiresIn = int64(v)
	} else if !tok.Expiry.IsZero() {
		cred.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	}
	return cred
}

// grantError converts an oauth2 failure into a RemoteError when the provider
// responded, so callers can log status and body.
func grantError(grant string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return fmt.Errorf("%s grant: %w", grant, &driven.RemoteError{
			StatusCode: re.Response.StatusCode,
			Body:       strings.TrimSpace(string(re.Body)),
		})
	}
	return fmt.Errorf("%s grant: %w", grant, err)
}
