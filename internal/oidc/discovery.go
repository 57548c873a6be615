package oidc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"authful-mcp-proxy/internal/oidcerr"
)

const discoveryTimeout = 5 * time.Second

// OidcConfig is the subset of the provider's .well-known/openid-configuration
// document this proxy needs to drive the authorization code flow. It does not
// attempt ID-token or JWKS validation, so fields beyond the two required
// endpoints are best-effort.
type OidcConfig struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint,omitempty"`
	JWKSURI               string `json:"jwks_uri,omitempty"`
}

// DiscoverOidcConfig fetches and validates the provider's OIDC discovery
// document. httpClient may be nil, in which case http.DefaultClient is used.
func DiscoverOidcConfig(ctx context.Context, issuerURL string, httpClient *http.Client) (*OidcConfig, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	discoveryURL := strings.TrimRight(issuerURL, "/") + "/.well-known/openid-configuration"

	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Discovery, err, "failed to build OIDC discovery request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Discovery, err, "failed to fetch OIDC configuration")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, oidcerr.New(oidcerr.Discovery, "OIDC discovery request failed with status: %s", resp.Status)
	}

	var cfg OidcConfig
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, oidcerr.Wrap(oidcerr.Discovery, err, "failed to parse OIDC configuration")
	}

	if cfg.AuthorizationEndpoint == "" {
		return nil, oidcerr.New(oidcerr.Discovery, "OIDC configuration missing authorization_endpoint")
	}
	if cfg.TokenEndpoint == "" {
		return nil, oidcerr.New(oidcerr.Discovery, "OIDC configuration missing token_endpoint")
	}

	return &cfg, nil
}
