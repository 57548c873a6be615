package oidc

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"authful-mcp-proxy/internal/oidcerr"
)

// TokenStore persists one TokenBundle per OIDC issuer under
// ~/.mcp/authful_mcp_proxy/tokens/<sanitized-issuer>_tokens.json.
type TokenStore struct {
	dir string
}

// NewTokenStore resolves the storage directory from HOME (or USERPROFILE on
// Windows) and ensures it exists.
func NewTokenStore() (*TokenStore, error) {
	home := os.Getenv("HOME")
	if home == "" {
		home = os.Getenv("USERPROFILE")
	}
	if home == "" {
		return nil, oidcerr.New(oidcerr.Token, "cannot determine home directory")
	}

	dir := filepath.Join(home, ".mcp", "authful_mcp_proxy", "tokens")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, oidcerr.Wrap(oidcerr.Io, err, "failed to create token storage directory")
	}

	return &TokenStore{dir: dir}, nil
}

// SanitizeIssuer turns an issuer URL into a filesystem-safe name:
// the scheme prefix is stripped, then '/' and ':' are replaced with '_'.
func SanitizeIssuer(issuerURL string) string {
	s := strings.TrimPrefix(issuerURL, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}

func (s *TokenStore) pathFor(issuerURL string) string {
	return filepath.Join(s.dir, SanitizeIssuer(issuerURL)+"_tokens.json")
}

// Save writes the bundle to disk, overwriting any existing cache for this
// issuer. It never logs token values.
func (s *TokenStore) Save(issuerURL string, bundle *TokenBundle) error {
	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return oidcerr.Wrap(oidcerr.Json, err, "failed to marshal token bundle")
	}

	if err := os.WriteFile(s.pathFor(issuerURL), data, 0o600); err != nil {
		return oidcerr.Wrap(oidcerr.Io, err, "failed to write token cache")
	}

	slog.Info("SECURITY_AUDIT: OAuth token stored", "issuer", SanitizeIssuer(issuerURL), "has_refresh_token", bundle.RefreshToken != "")
	return nil
}

// Load reads a cached bundle for the issuer, returning (nil, nil) if no cache
// file exists. expiresAt is recomputed from expires_in relative to now, since
// the original issue time isn't persisted; this is a deliberate, optimistic
// approximation (see DESIGN.md): each load extends the token's apparent
// validity to a full expires_in from now.
func (s *TokenStore) Load(issuerURL string) (*TokenBundle, error) {
	data, err := os.ReadFile(s.pathFor(issuerURL))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oidcerr.Wrap(oidcerr.Io, err, "failed to read token cache")
	}

	var bundle TokenBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, oidcerr.Wrap(oidcerr.Json, err, "failed to parse token cache")
	}

	if bundle.ExpiresIn != nil {
		bundle.expiresAt = nowPlusSeconds(*bundle.ExpiresIn)
	}

	return &bundle, nil
}

// Delete removes the cached bundle for the issuer, if any. Deleting a
// nonexistent cache is not an error.
func (s *TokenStore) Delete(issuerURL string) error {
	err := os.Remove(s.pathFor(issuerURL))
	if err != nil && !os.IsNotExist(err) {
		return oidcerr.Wrap(oidcerr.Io, err, "failed to delete token cache")
	}
	slog.Info("SECURITY_AUDIT: OAuth token deleted", "issuer", SanitizeIssuer(issuerURL))
	return nil
}
