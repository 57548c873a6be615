package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"authful-mcp-proxy/internal/browser"
	"authful-mcp-proxy/internal/oidcerr"
)

// OidcClient orchestrates the OAuth 2.0 authorization code flow with PKCE: it
// discovers the provider once at construction, keeps a single cached token in
// memory (backed by a per-issuer file in TokenStore), and knows how to renew
// that token by refresh grant or, failing that, by a full interactive
// browser-based flow.
type OidcClient struct {
	issuerURL    string
	clientID     string
	clientSecret string
	scopes       []string
	redirectURL  string

	cfg        *OidcConfig
	store      *TokenStore
	httpClient *http.Client

	mu    sync.RWMutex
	token *TokenBundle

	renewGroup singleflight.Group
}

// NewOidcClient discovers the issuer's OIDC configuration and loads any
// cached token before returning a ready-to-use client.
func NewOidcClient(ctx context.Context, issuerURL, clientID, clientSecret string, scopes []string, redirectURL string, httpClient *http.Client) (*OidcClient, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	cfg, err := DiscoverOidcConfig(ctx, issuerURL, httpClient)
	if err != nil {
		return nil, err
	}

	store, err := NewTokenStore()
	if err != nil {
		return nil, err
	}

	token, err := store.Load(issuerURL)
	if err != nil {
		return nil, err
	}

	return &OidcClient{
		issuerURL:    issuerURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       scopes,
		redirectURL:  redirectURL,
		cfg:          cfg,
		store:        store,
		httpClient:   httpClient,
		token:        token,
	}, nil
}

// GetToken returns a valid access token, renewing it first if necessary.
func (c *OidcClient) GetToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token.IsValid() {
		return token.AccessToken, nil
	}

	return c.RenewToken(ctx)
}

// RenewToken refreshes the cached token, falling back to a full browser-based
// authorization flow if no refresh token is available or the refresh grant
// fails. Concurrent callers collapse onto a single renewal via singleflight.
func (c *OidcClient) RenewToken(ctx context.Context) (string, error) {
	v, err, _ := c.renewGroup.Do("renew", func() (any, error) {
		return c.renewTokenLocked(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *OidcClient) renewTokenLocked(ctx context.Context) (string, error) {
	c.mu.RLock()
	canRefresh := c.token.CanRefresh()
	c.mu.RUnlock()

	if canRefresh {
		token, err := c.refreshAccessToken(ctx)
		if err == nil {
			return token, nil
		}
		slog.Warn("token refresh failed, performing full auth flow", "error", err)
	}

	return c.performAuthFlow(ctx)
}

func (c *OidcClient) performAuthFlow(ctx context.Context) (string, error) {
	slog.Info("starting OAuth 2.0 authorization code flow with PKCE")

	pkce, err := GeneratePKCE()
	if err != nil {
		return "", err
	}
	state, err := GenerateState()
	if err != nil {
		return "", err
	}

	authURL, err := c.buildAuthorizationURL(state, pkce)
	if err != nil {
		return "", err
	}

	slog.Info("opening browser for authorization", "url", authURL)
	if err := browser.Open(authURL); err != nil {
		slog.Warn("failed to open browser automatically", "error", err)
		fmt.Fprintf(browser.Stderr, "\nCould not open browser automatically.\nPlease open this URL in your browser:\n\n%s\n\n", authURL)
	}

	redirectURI, err := url.Parse(c.redirectURL)
	if err != nil {
		return "", oidcerr.Wrap(oidcerr.Config, err, "invalid redirect URL")
	}
	port := 8080
	if p := redirectURI.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	path := redirectURI.Path
	if path == "" {
		path = "/"
	}

	listener := NewCallbackListener(port, path)
	if err := listener.Start(ctx); err != nil {
		return "", err
	}
	defer listener.Stop(context.Background())

	result, err := listener.WaitForCallback(ctx)
	if err != nil {
		return "", err
	}

	if result.State != state {
		return "", oidcerr.New(oidcerr.Auth, "State mismatch - possible CSRF attack")
	}

	bundle, err := c.exchangeCodeForTokens(ctx, result.Code, pkce)
	if err != nil {
		return "", err
	}

	if err := c.store.Save(c.issuerURL, bundle); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = bundle
	c.mu.Unlock()

	slog.Info("OAuth flow completed successfully")
	return bundle.AccessToken, nil
}

func (c *OidcClient) refreshAccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	refreshToken := ""
	if c.token != nil {
		refreshToken = c.token.RefreshToken
	}
	c.mu.RUnlock()

	if refreshToken == "" {
		return "", oidcerr.New(oidcerr.Token, "no refresh token available")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	resp, err := c.postForm(ctx, c.cfg.TokenEndpoint, form)
	if err != nil {
		return "", oidcerr.Wrap(oidcerr.Http, err, "token refresh request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", oidcerr.New(oidcerr.Token, "token refresh failed with status: %s", resp.Status)
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", oidcerr.Wrap(oidcerr.Json, err, "failed to parse token refresh response")
	}

	bundle := NewTokenBundle(tr)
	if err := c.store.Save(c.issuerURL, bundle); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.token = bundle
	c.mu.Unlock()

	return bundle.AccessToken, nil
}

func (c *OidcClient) exchangeCodeForTokens(ctx context.Context, code string, pkce *PkceParams) (*TokenBundle, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.redirectURL)
	form.Set("client_id", c.clientID)
	form.Set("code_verifier", pkce.CodeVerifier)
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	resp, err := c.postForm(ctx, c.cfg.TokenEndpoint, form)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Http, err, "token exchange request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, oidcerr.New(oidcerr.Token, "token exchange failed with status %s: %s", resp.Status, string(body))
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, oidcerr.Wrap(oidcerr.Json, err, "failed to parse token exchange response")
	}

	return NewTokenBundle(tr), nil
}

func (c *OidcClient) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.httpClient.Do(req)
}

func (c *OidcClient) buildAuthorizationURL(state string, pkce *PkceParams) (string, error) {
	u, err := url.Parse(c.cfg.AuthorizationEndpoint)
	if err != nil {
		return "", oidcerr.Wrap(oidcerr.Config, err, "invalid authorization endpoint")
	}

	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURL)
	q.Set("scope", strings.Join(c.scopes, " "))
	q.Set("state", state)
	q.Set("code_challenge", pkce.CodeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()

	return u.String(), nil
}
