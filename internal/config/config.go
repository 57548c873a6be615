// Package config loads and validates the proxy's environment-based
// configuration (spec §6). There is exactly one source of truth: the
// process environment, no YAML/JSON files, matching the teacher's
// env-override idiom but without its multi-file loader.
package config

import (
	"os"
	"strings"

	"authful-mcp-proxy/internal/oidcerr"
)

const (
	defaultScopes      = "openid profile email"
	defaultRedirectURL = "http://localhost:8080/auth/callback"
)

// Config is the proxy's full runtime configuration, sourced from the
// environment variables documented in spec §6.
type Config struct {
	BackendURL string

	OidcIssuerURL    string
	OidcClientID     string
	OidcClientSecret string
	OidcScopes       []string
	OidcRedirectURL  string

	DumpMessagesPath string
}

// Load reads the process environment into a Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		BackendURL:       os.Getenv("MCP_BACKEND_URL"),
		OidcIssuerURL:    os.Getenv("OIDC_ISSUER_URL"),
		OidcClientID:     os.Getenv("OIDC_CLIENT_ID"),
		OidcClientSecret: os.Getenv("OIDC_CLIENT_SECRET"),
		OidcRedirectURL:  os.Getenv("OIDC_REDIRECT_URL"),
		DumpMessagesPath: os.Getenv("MCP_PROXY_DUMP_MESSAGES"),
	}

	scopes := os.Getenv("OIDC_SCOPES")
	if scopes == "" {
		scopes = defaultScopes
	}
	cfg.OidcScopes = NormalizeScopes(scopes)

	if cfg.OidcRedirectURL == "" {
		cfg.OidcRedirectURL = defaultRedirectURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that every required field (spec §6) is present, collecting
// every failure rather than stopping at the first.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.BackendURL == "" {
		errs.Errors = append(errs.Errors, &ValidationError{Field: "MCP_BACKEND_URL", Message: "is required"})
	}
	if c.OidcIssuerURL == "" {
		errs.Errors = append(errs.Errors, &ValidationError{Field: "OIDC_ISSUER_URL", Message: "is required"})
	}
	if c.OidcClientID == "" {
		errs.Errors = append(errs.Errors, &ValidationError{Field: "OIDC_CLIENT_ID", Message: "is required"})
	}

	if errs.HasErrors() {
		return oidcerr.Wrap(oidcerr.Config, &errs, "invalid configuration")
	}
	return nil
}

// NormalizeScopes splits a space-separated scope string and ensures "openid"
// is present, prepending it if absent, per spec §4.5. Relative order of the
// other scopes is preserved.
func NormalizeScopes(scopes string) []string {
	fields := strings.Fields(scopes)
	for _, f := range fields {
		if f == "openid" {
			return fields
		}
	}
	return append([]string{"openid"}, fields...)
}
