package oidc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDiscoverOidcConfig_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"issuer": "` + r.Host + `",
			"authorization_endpoint": "http://` + r.Host + `/auth",
			"token_endpoint": "http://` + r.Host + `/token"
		}`))
	}))
	defer srv.Close()

	cfg, err := DiscoverOidcConfig(context.Background(), srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("DiscoverOidcConfig: %v", err)
	}
	if cfg.TokenEndpoint == "" || cfg.AuthorizationEndpoint == "" {
		t.Errorf("expected populated endpoints, got %+v", cfg)
	}
}

func TestDiscoverOidcConfig_TrailingSlash(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"x","authorization_endpoint":"a","token_endpoint":"b"}`))
	}))
	defer srv.Close()

	if _, err := DiscoverOidcConfig(context.Background(), srv.URL+"/", srv.Client()); err != nil {
		t.Fatalf("DiscoverOidcConfig: %v", err)
	}
	if gotPath != "/.well-known/openid-configuration" {
		t.Errorf("expected no double slash, got %q", gotPath)
	}
}

func TestDiscoverOidcConfig_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := DiscoverOidcConfig(context.Background(), srv.URL, srv.Client())
	if err == nil || !strings.Contains(err.Error(), "OIDC discovery request failed") {
		t.Fatalf("expected discovery-failed error, got %v", err)
	}
}

func TestDiscoverOidcConfig_MissingEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issuer":"x","token_endpoint":"b"}`))
	}))
	defer srv.Close()

	_, err := DiscoverOidcConfig(context.Background(), srv.URL, srv.Client())
	if err == nil || !strings.Contains(err.Error(), "missing authorization_endpoint") {
		t.Fatalf("expected missing authorization_endpoint error, got %v", err)
	}
}
