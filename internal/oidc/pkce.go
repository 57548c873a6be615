package oidc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"math/big"

	"authful-mcp-proxy/internal/oidcerr"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// PkceParams holds the PKCE (RFC 7636) verifier/challenge pair for a single
// authorization attempt. Only the S256 challenge method is supported.
type PkceParams struct {
	CodeVerifier  string
	CodeChallenge string
}

// GeneratePKCE creates a new verifier/challenge pair. The verifier is 64
// random alphanumeric characters; the challenge is the base64url (no
// padding) encoding of its SHA-256 digest.
func GeneratePKCE() (*PkceParams, error) {
	verifier, err := randomAlphanumeric(64)
	if err != nil {
		return nil, oidcerr.Wrap(oidcerr.Auth, err, "failed to generate PKCE verifier")
	}
	sum := sha256.Sum256([]byte(verifier))
	return &PkceParams{
		CodeVerifier:  verifier,
		CodeChallenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}, nil
}

// GenerateState creates a random 32-character alphanumeric state parameter
// used for CSRF protection during the authorization redirect.
func GenerateState() (string, error) {
	state, err := randomAlphanumeric(32)
	if err != nil {
		return "", oidcerr.Wrap(oidcerr.Auth, err, "failed to generate state parameter")
	}
	return state, nil
}

func randomAlphanumeric(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}
