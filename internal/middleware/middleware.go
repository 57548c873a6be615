// Package middleware implements the authenticating HTTP round tripper that
// sits between the stdio bridge and the backend MCP server: it injects a
// bearer token on every outgoing request and, on a 401, renews the token and
// retries exactly once (spec §4.6).
package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"authful-mcp-proxy/internal/oidcerr"
)

// TokenProvider is the subset of OidcClient the middleware depends on, kept
// as an interface so tests can supply a stub instead of a live OIDC client.
type TokenProvider interface {
	GetToken(ctx context.Context) (string, error)
	RenewToken(ctx context.Context) (string, error)
}

// AuthMiddleware wraps an *http.Client and injects a bearer token into every request it forwards,
// renewing and retrying once on a 401 response.
type AuthMiddleware struct {
	provider TokenProvider
	client   *http.Client
}

// New builds an AuthMiddleware. If httpClient is nil, http.DefaultClient is
// used.
func New(provider TokenProvider, httpClient *http.Client) *AuthMiddleware {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AuthMiddleware{provider: provider, client: httpClient}
}

// Do sends req with a bearer token attached, renewing and retrying once if
// the backend replies 401 Unauthorized. At most two upstream round trips are
// made per call. req's body, if any, is read once and buffered by
// cloneRequest, so the retry resends the same bytes even for a non-seekable
// io.Reader.
func (m *AuthMiddleware) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	token, err := m.provider.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	first, body, err := cloneRequest(req)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Http, err, "failed to clone request")
	}
	first.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.client.Do(first)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Http, err, "request failed")
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	resp.Body.Close()

	newToken, err := m.provider.RenewToken(ctx)
	if err != nil {
		return nil, err
	}

	second, _, err := cloneRequestFromBody(req, body)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Http, err, "failed to clone request for retry")
	}
	second.Header.Set("Authorization", "Bearer "+newToken)

	resp, err = m.client.Do(second)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Http, err, "retried request failed")
	}
	return resp, nil
}

// cloneRequest produces a deep-enough copy of req suitable for a first send,
// returning the buffered body bytes (nil if req had no body) so a second
// attempt can reuse them without re-reading the original, now-consumed body.
func cloneRequest(req *http.Request) (*http.Request, []byte, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, nil, err
		}
		req.Body.Close()
	}
	clone, _, err := cloneRequestFromBody(req, bodyBytes)
	return clone, bodyBytes, err
}

func cloneRequestFromBody(req *http.Request, bodyBytes []byte) (*http.Request, []byte, error) {
	clone := req.Clone(req.Context())
	if bodyBytes != nil {
		clone.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		clone.ContentLength = int64(len(bodyBytes))
	}
	return clone, bodyBytes, nil
}
