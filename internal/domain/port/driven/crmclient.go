package driven

import (
	"context"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
)

// CRMClient defines the driven port for the remote CRM's REST API. Methods
// return real errors; failure policy (fail-open dedupe, swallowed association
// failures) belongs to the application layer, not the adapter.
type CRMClient interface {
	// SearchContactByEmail reports whether at least one contact matches the
	// email exactly.
	SearchContactByEmail(ctx context.Context, email, token string) (bool, error)

	// CreateContact creates a contact and returns its remote representation.
	CreateContact(ctx context.Context, props model.ContactProperties, token string) (*model.Contact, error)

	// SearchCompanyByName returns the id of a company whose name matches
	// exactly, or "" when none exists.
	SearchCompanyByName(ctx context.Context, name, token string) (string, error)

	// CreateCompany creates a company with the given name and returns its id.
	CreateCompany(ctx context.Context, name, token string) (string, error)

	// AssociateContactWithCompany links the two objects with the fixed
	// contact-to-company association type.
	AssociateContactWithCompany(ctx context.Context, contactID, companyID, token string) error
}
