// Package browser launches the user's default web browser to complete an
// OAuth authorization redirect. Opening the browser is always best-effort:
// callers are expected to print the URL to stderr themselves when Open fails
// so the user can navigate there manually.
package browser

import (
	"fmt"
	"io"
	"net/url"
	"os"

	pkgbrowser "github.com/pkg/browser"
)

// Stderr is where callers should print manual-navigation fallback URLs. It
// is a var, not a constant reference to os.Stderr, so tests can capture it.
var Stderr io.Writer = os.Stderr

// Open launches the default browser at urlStr. Only http/https schemes are
// allowed, since urlStr here is always a provider-controlled authorization
// endpoint plus our own query parameters, never arbitrary user input.
func Open(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %q: only http and https are allowed", parsed.Scheme)
	}
	return pkgbrowser.OpenURL(urlStr)
}
