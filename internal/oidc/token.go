package oidc

import (
	"time"

	"golang.org/x/oauth2"
)

const tokenExpiryBuffer = 60 * time.Second

// TokenResponse is the wire shape of a token endpoint response (authorization
// code exchange or refresh grant).
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    *int64 `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenBundle is the in-memory and on-disk representation of a cached token.
// expiresAt is derived, never serialized, and recomputed whenever the bundle
// is built from a TokenResponse or reloaded from disk.
type TokenBundle struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    *int64 `json:"expires_in,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`

	expiresAt time.Time
}

// NewTokenBundle builds a TokenBundle from a fresh token response, deriving
// expiresAt from the current time plus expires_in.
func NewTokenBundle(resp TokenResponse) *TokenBundle {
	b := &TokenBundle{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
	}
	if resp.ExpiresIn != nil {
		b.expiresAt = time.Now().Add(time.Duration(*resp.ExpiresIn) * time.Second)
	}
	return b
}

// IsValid reports whether the bundle carries a usable access token: non-empty,
// and either expiry-less or not within 60 seconds of its expiry.
func (b *TokenBundle) IsValid() bool {
	if b == nil || b.AccessToken == "" {
		return false
	}
	if b.expiresAt.IsZero() {
		return true
	}
	return time.Now().Before(b.expiresAt.Add(-tokenExpiryBuffer))
}

// CanRefresh reports whether a refresh_token is available for this bundle.
func (b *TokenBundle) CanRefresh() bool {
	return b != nil && b.RefreshToken != ""
}

func nowPlusSeconds(seconds int64) time.Time {
	return time.Now().Add(time.Duration(seconds) * time.Second)
}

// ToOAuth2Token converts the bundle to an *oauth2.Token so it can interoperate
// with the wider golang.org/x/oauth2 ecosystem.
func (b *TokenBundle) ToOAuth2Token() *oauth2.Token {
	t := &oauth2.Token{
		AccessToken:  b.AccessToken,
		RefreshToken: b.RefreshToken,
		TokenType:    b.TokenType,
	}
	if !b.expiresAt.IsZero() {
		t.Expiry = b.expiresAt
	}
	return t
}
