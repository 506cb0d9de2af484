// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
)

// Sentinel errors for the token lifecycle. Only these may abort a sync run;
// per-record remote failures are isolated to their record.
var (
	// ErrNotAuthenticated indicates no credential has been stored yet. The
	// caller should direct the user to the install/connect flow.
	ErrNotAuthenticated = errors.New("not authenticated: connect the CRM account first")

	// ErrTokenExchange indicates the provider rejected an authorization_code
	// grant. Not retried; the user must re-authenticate.
	ErrTokenExchange = errors.New("authorization code exchange rejected")

	// ErrTokenRefresh indicates the provider rejected a refresh_token grant.
	// The refresh token may be revoked; the user must re-authenticate.
	ErrTokenRefresh = errors.New("token refresh rejected")
)

// CredentialStore persists the OAuth credential for the single default
// identity. Load returns (nil, nil) when no credential has been saved yet.
// Save replaces the whole credential; implementations must write atomically
// so the durable copy never diverges from the in-process cache.
type CredentialStore interface {
	Load(ctx context.Context) (*model.Credential, error)
	Save(ctx context.Context, cred model.Credential) error
}
