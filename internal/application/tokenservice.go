// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// TokenService manages the OAuth credential lifecycle for the single default
// identity: code exchange, transparent refresh, and write-through persistence.
// The in-process cache and the durable store are always updated together.
type TokenService struct {
	store     driven.CredentialStore
	exchanger driven.TokenExchanger

	// mu serializes the check-then-refresh sequence so two near-simultaneous
	// callers cannot both submit a refresh grant (the provider may invalidate
	// the old refresh token on first use).
	mu     sync.Mutex
	cached *model.Credential

	now func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(store driven.CredentialStore, exchanger driven.TokenExchanger) *TokenService {
	return &TokenService{
		store:     store,
		exchanger: exchanger,
		now:       time.Now,
	}
}

// GetValidAccessToken returns a usable access token. It fails with
// driven.ErrNotAuthenticated when no credential exists, refreshes (and
// persists) when the stored credential is expired, and otherwise returns the
// stored token unchanged.
func (s *TokenService) GetValidAccessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.credential(ctx)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", driven.ErrNotAuthenticated
	}

	if !cred.Expired(s.now()) {
		return cred.AccessToken, nil
	}

	refreshed, err := s.refresh(ctx, *cred)
	if err != nil {
		return "", err
	}
	return refreshed.AccessToken, nil
}

// ExchangeAuthorizationCode performs the authorization_code grant, persists
// the resulting credential, and returns it. Failures wrap
// driven.ErrTokenExchange and must be surfaced as "re-authenticate".
func (s *TokenService) ExchangeAuthorizationCode(ctx context.Context, code string) (*model.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.exchanger.Exchange(ctx, code)
	if err != nil {
		logRemoteError("authorization code exchange failed", err)
		return nil, fmt.Errorf("%w: %w", driven.ErrTokenExchange, err)
	}

	cred.Stamp(s.now())
	if err := s.persist(ctx, *cred); err != nil {
		return nil, err
	}

	slog.Info("authorization code exchanged", "expires_at", cred.ExpiresAt)
	return cred, nil
}

// Authorized reports whether a credential exists at all, expired or not.
// Used by the entry point to decide between the sync and connect affordances.
func (s *TokenService) Authorized(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.credential(ctx)
	return err == nil && cred != nil
}

// refresh performs the refresh_token grant and merges the result into the
// current credential: the refresh token is kept when the provider does not
// reissue one, and expires_at resets relative to refresh completion time.
// Failures wrap driven.ErrTokenRefresh; the caller must treat that as
// requiring full re-authentication.
func (s *TokenService) refresh(ctx context.Context, current model.Credential) (*model.Credential, error) {
	cred, err := s.exchanger.Refresh(ctx, current.RefreshToken)
	if err != nil {
		logRemoteError("token refresh failed", err)
		return nil, fmt.Errorf("%w: %w", driven.ErrTokenRefresh, err)
	}

	if cred.RefreshToken == "" {
		cred.RefreshToken = current.RefreshToken
	}
	if cred.TokenType == "" {
		cred.TokenType = current.TokenType
	}

	cred.Stamp(s.now())
	if err := s.persist(ctx, *cred); err != nil {
		return nil, err
	}

	slog.Info("access token refreshed", "expires_at", cred.ExpiresAt)
	return cred, nil
}

// credential returns the cached credential, loading from the store on first
// use. A nil credential with nil error means "not authenticated yet".
func (s *TokenService) credential(ctx context.Context) (*model.Credential, error) {
	if s.cached != nil {
		return s.cached, nil
	}

	cred, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	s.cached = cred
	return cred, nil
}

// persist writes through: durable store first, then the cache, so the two
// never diverge.
func (s *TokenService) persist(ctx context.Context, cred model.Credential) error {
	if err := s.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	s.cached = &cred
	return nil
}
