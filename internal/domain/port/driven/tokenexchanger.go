package driven

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
)

// TokenExchanger performs OAuth2 grants against the provider's token
// endpoint. Returned credentials carry the provider-issued fields
// (access_token, refresh_token, token_type, expires_in); computing and
// stamping expires_at is the token lifecycle manager's job.
type TokenExchanger interface {
	// Exchange performs the authorization_code grant.
	Exchange(ctx context.Context, code string) (*model.Credential, error)
	// Refresh performs the refresh_token grant. The returned credential may
	// omit refresh_token when the provider retains the old one.
	Refresh(ctx context.Context, refreshToken string) (*model.Credential, error)
}

// RemoteError is a non-2xx response from a remote API, preserving the status
// code and response body for structured logging.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote api error: status %d: %s", e.StatusCode, e.Body)
}
