// Package model contains the domain types shared across ports and services.
package model

import "time"

// Credential holds the OAuth token material for the single default identity.
// It is persisted whole: the JSON field names match the provider's token
// endpoint response, plus the derived expires_at timestamp.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	// ExpiresIn is the lifetime in seconds as issued by the provider.
	ExpiresIn int64 `json:"expires_in"`
	// ExpiresAt is the absolute expiry as epoch milliseconds, recomputed on
	// every save as issue time + ExpiresIn*1000.
	ExpiresAt int64 `json:"expires_at"`
}

// Expired reports whether the access token has reached its expiry at the
// given instant. A credential without an ExpiresAt is treated as expired.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt == 0 {
		return true
	}
	return now.UnixMilli() >= c.ExpiresAt
}

// Stamp sets ExpiresAt relative to the given issue time. ExpiresIn must
// already hold the provider-issued lifetime.
func (c *Credential) Stamp(issuedAt time.Time) {
	c.ExpiresAt = issuedAt.UnixMilli() + c.ExpiresIn*1000
}
