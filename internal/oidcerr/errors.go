// Package oidcerr defines the error taxonomy shared across the proxy's OIDC,
// middleware, and bridge layers so callers can branch on failure category
// without string-matching messages.
package oidcerr

import (
	"errors"
	"fmt"
)

// Kind categorizes a proxy error so callers (mainly cmd/root.go's exit-code
// mapping) can react to the failure mode without parsing messages.
type Kind string

const (
	Config    Kind = "config"
	Discovery Kind = "discovery"
	Token     Kind = "token"
	Callback  Kind = "callback"
	Timeout   Kind = "timeout"
	Auth      Kind = "auth"
	Http      Kind = "http"
	Io        Kind = "io"
	Json      Kind = "json"
	Mcp       Kind = "mcp"
)

// Error is a kinded, wrappable error. The zero value is not usable; build one
// with New or Wrap.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}
