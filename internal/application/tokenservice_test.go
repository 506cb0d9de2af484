package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/sheetsync/internal/domain/model"
	"github.com/ericfisherdev/sheetsync/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockCredentialStore struct {
	cred  *model.Credential
	saved []model.Credential

	loadErr error
	saveErr error
	loads   int
}

func (m *mockCredentialStore) Load(_ context.Context) (*model.Credential, error) {
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.cred, nil
}

func (m *mockCredentialStore) Save(_ context.Context, cred model.Credential) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, cred)
	m.cred = &cred
	return nil
}

type mockExchanger struct {
	exchangeCred *model.Credential
	exchangeErr  error
	exchanges    int

	refreshCred   *model.Credential
	refreshErr    error
	refreshes     int
	refreshedWith string
}

func (m *mockExchanger) Exchange(_ context.Context, _ string) (*model.Credential, error) {
	m.exchanges++
	if m.exchangeErr != nil {
		return nil, m.exchangeErr
	}
	cred := *m.exchangeCred
	return &cred, nil
}

func (m *mockExchanger) Refresh(_ context.Context, refreshToken string) (*model.Credential, error) {
	m.refreshes++
	m.refreshedWith = refreshToken
	if m.refreshErr != nil {
		return nil, m.refreshErr
	}
	cred := *m.refreshCred
	return &cred, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGetValidAccessToken_NotAuthenticated(t *testing.T) {
	store := &mockCredentialStore{}
	exchanger := &mockExchanger{}
	svc := NewTokenService(store, exchanger)

	_, err := svc.GetValidAccessToken(context.Background())

	require.ErrorIs(t, err, driven.ErrNotAuthenticated)
	assert.Zero(t, exchanger.refreshes)
}

func TestGetValidAccessToken_ValidCredentialSkipsRefresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockCredentialStore{
		cred: &model.Credential{
			AccessToken:  "live-token",
			RefreshToken: "refresh",
			ExpiresAt:    now.Add(time.Hour).UnixMilli(),
		},
	}
	exchanger := &mockExchanger{}
	svc := NewTokenService(store, exchanger)
	svc.now = fixedClock(now)

	token, err := svc.GetValidAccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "live-token", token)
	assert.Zero(t, exchanger.refreshes, "a non-expired credential must not trigger a refresh")
	assert.Empty(t, store.saved, "nothing should be persisted when the token is still valid")
}

func TestGetValidAccessToken_ExpiredCredentialRefreshesOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockCredentialStore{
		cred: &model.Credential{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-1",
			TokenType:    "bearer",
			ExpiresAt:    now.Add(-time.Minute).UnixMilli(),
		},
	}
	exchanger := &mockExchanger{
		refreshCred: &model.Credential{
			AccessToken: "fresh-token",
			ExpiresIn:   1800,
		},
	}
	svc := NewTokenService(store, exchanger)
	svc.now = fixedClock(now)

	token, err := svc.GetValidAccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 1, exchanger.refreshes)
	assert.Equal(t, "refresh-1", exchanger.refreshedWith)

	require.Len(t, store.saved, 1)
	saved := store.saved[0]
	assert.Equal(t, "fresh-token", saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken, "refresh token is kept when the provider does not reissue one")
	assert.Equal(t, "bearer", saved.TokenType)
	assert.Equal(t, now.UnixMilli()+1800*1000, saved.ExpiresAt, "expires_at must be issue time plus expires_in")
}

func TestGetValidAccessToken_MissingExpiresAtTreatedAsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockCredentialStore{
		cred: &model.Credential{
			AccessToken:  "legacy-token",
			RefreshToken: "refresh-1",
		},
	}
	exchanger := &mockExchanger{
		refreshCred: &model.Credential{AccessToken: "fresh-token", ExpiresIn: 1800},
	}
	svc := NewTokenService(store, exchanger)
	svc.now = fixedClock(now)

	token, err := svc.GetValidAccessToken(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "fresh-token", token)
	assert.Equal(t, 1, exchanger.refreshes)
}

func TestGetValidAccessToken_RefreshFailureWrapsSentinel(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockCredentialStore{
		cred: &model.Credential{
			AccessToken:  "stale-token",
			RefreshToken: "refresh-1",
			ExpiresAt:    now.Add(-time.Minute).UnixMilli(),
		},
	}
	exchanger := &mockExchanger{
		refreshErr: &driven.RemoteError{StatusCode: 400, Body: `{"status":"BAD_REFRESH_TOKEN"}`},
	}
	svc := NewTokenService(store, exchanger)
	svc.now = fixedClock(now)

	_, err := svc.GetValidAccessToken(context.Background())

	require.ErrorIs(t, err, driven.ErrTokenRefresh)
	var re *driven.RemoteError
	assert.ErrorAs(t, err, &re, "the underlying remote error must stay inspectable")
	assert.Empty(t, store.saved, "a failed refresh must not overwrite the stored credential")
}

func TestGetValidAccessToken_SecondCallUsesCache(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockCredentialStore{
		cred: &model.Credential{
			AccessToken: "live-token",
			ExpiresAt:   now.Add(time.Hour).UnixMilli(),
		},
	}
	svc := NewTokenService(store, &mockExchanger{})
	svc.now = fixedClock(now)

	_, err := svc.GetValidAccessToken(context.Background())
	require.NoError(t, err)
	_, err = svc.GetValidAccessToken(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, store.loads, "the credential file is read once, then served from cache")
}

func TestExchangeAuthorizationCode_PersistsStampedCredential(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mockCredentialStore{}
	exchanger := &mockExchanger{
		exchangeCred: &model.Credential{
			AccessToken:  "new-token",
			RefreshToken: "new-refresh",
			TokenType:    "bearer",
			ExpiresIn:    1800,
		},
	}
	svc := NewTokenService(store, exchanger)
	svc.now = fixedClock(now)

	cred, err := svc.ExchangeAuthorizationCode(context.Background(), "auth-code")

	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli()+1800*1000, cred.ExpiresAt)
	require.Len(t, store.saved, 1)
	assert.Equal(t, *cred, store.saved[0])

	// The freshly exchanged credential should serve tokens without a reload.
	token, err := svc.GetValidAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)
	assert.Zero(t, store.loads)
}

func TestExchangeAuthorizationCode_FailureWrapsSentinel(t *testing.T) {
	store := &mockCredentialStore{}
	exchanger := &mockExchanger{
		exchangeErr: errors.New("invalid_grant"),
	}
	svc := NewTokenService(store, exchanger)

	_, err := svc.ExchangeAuthorizationCode(context.Background(), "bad-code")

	require.ErrorIs(t, err, driven.ErrTokenExchange)
	assert.Empty(t, store.saved)
}

func TestAuthorized(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no credential", func(t *testing.T) {
		svc := NewTokenService(&mockCredentialStore{}, &mockExchanger{})
		assert.False(t, svc.Authorized(context.Background()))
	})

	t.Run("expired credential still counts", func(t *testing.T) {
		store := &mockCredentialStore{
			cred: &model.Credential{AccessToken: "stale", ExpiresAt: now.Add(-time.Hour).UnixMilli()},
		}
		svc := NewTokenService(store, &mockExchanger{})
		svc.now = fixedClock(now)
		assert.True(t, svc.Authorized(context.Background()))
	})
}
