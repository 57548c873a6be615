package oidc

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("USERPROFILE", "")
	store, err := NewTokenStore()
	if err != nil {
		t.Fatalf("NewTokenStore: %v", err)
	}
	return store
}

func TestSanitizeIssuer(t *testing.T) {
	cases := map[string]string{
		"https://auth.example.com/realms/myrealm": "auth.example.com_realms_myrealm",
		"http://localhost:8080":                   "localhost_8080",
	}
	for in, want := range cases {
		if got := SanitizeIssuer(in); got != want {
			t.Errorf("SanitizeIssuer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenStore_SaveLoadDelete(t *testing.T) {
	store := newTestStore(t)
	issuer := "https://idp.example.com"

	if got, err := store.Load(issuer); err != nil || got != nil {
		t.Fatalf("expected no cached token, got %+v, err %v", got, err)
	}

	bundle := NewTokenBundle(TokenResponse{AccessToken: "a", RefreshToken: "r", ExpiresIn: int64p(3600)})
	if err := store.Save(issuer, bundle); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := store.Load(issuer)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded == nil || loaded.AccessToken != "a" || loaded.RefreshToken != "r" {
		t.Fatalf("unexpected loaded bundle: %+v", loaded)
	}
	if !loaded.IsValid() {
		t.Error("expected reloaded bundle with expires_in to be valid immediately after save")
	}

	if err := store.Delete(issuer); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := store.Load(issuer); err != nil || got != nil {
		t.Fatalf("expected nil after delete, got %+v, err %v", got, err)
	}

	// Deleting again is not an error.
	if err := store.Delete(issuer); err != nil {
		t.Fatalf("second Delete should be a no-op, got %v", err)
	}
}

func TestTokenStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	issuer := "https://idp.example.com"
	bundle := NewTokenBundle(TokenResponse{AccessToken: "a"})
	if err := store.Save(issuer, bundle); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(store.dir, SanitizeIssuer(issuer)+"_tokens.json"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 perms, got %v", info.Mode().Perm())
	}
}
