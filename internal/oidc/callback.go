package oidc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"authful-mcp-proxy/internal/oidcerr"
)

const callbackTimeout = 300 * time.Second

// CallbackResult is the authorization code and state returned by the
// provider's redirect to the loopback callback.
type CallbackResult struct {
	Code  string
	State string
}

type callbackOutcome struct {
	result *CallbackResult
	err    error
}

// CallbackListener is a one-shot HTTP server bound to 127.0.0.1 that waits
// for a single OAuth redirect and then shuts itself down.
type CallbackListener struct {
	port int
	path string

	server   *http.Server
	listener net.Listener

	mu       sync.Mutex
	sent     bool
	outcome  chan callbackOutcome
	serveErr chan error
}

// NewCallbackListener builds a listener for the given port and redirect path.
// A port of 0 lets the OS choose an ephemeral port.
func NewCallbackListener(port int, path string) *CallbackListener {
	return &CallbackListener{
		port:     port,
		path:     path,
		outcome:  make(chan callbackOutcome, 1),
		serveErr: make(chan error, 1),
	}
}

// Start binds the loopback listener and begins serving in the background.
func (c *CallbackListener) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", c.port))
	if err != nil {
		return oidcerr.Wrap(oidcerr.Callback, err, "failed to bind OAuth callback listener")
	}
	c.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(c.path, c.handleCallback)
	c.server = &http.Server{Handler: mux}

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case c.serveErr <- err:
			default:
			}
		}
	}()

	return nil
}

// Port returns the bound TCP port, useful when NewCallbackListener was
// called with 0.
func (c *CallbackListener) Port() int {
	if tcpAddr, ok := c.listener.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return c.port
}

// WaitForCallback blocks until the redirect is received, the callback times
// out after 300 seconds, the server fails, or ctx is canceled.
func (c *CallbackListener) WaitForCallback(ctx context.Context) (*CallbackResult, error) {
	select {
	case o := <-c.outcome:
		return o.result, o.err
	case err := <-c.serveErr:
		return nil, oidcerr.Wrap(oidcerr.Callback, err, "OAuth callback server stopped unexpectedly")
	case <-time.After(callbackTimeout):
		return nil, oidcerr.New(oidcerr.Timeout, "OAuth callback timed out after 300 seconds")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Stop shuts the listener down. It is safe to call more than once.
func (c *CallbackListener) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return c.server.Shutdown(shutdownCtx)
}

func (c *CallbackListener) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		description := q.Get("error_description")
		if description == "" {
			description = "No description provided"
		}
		msg := fmt.Sprintf("OAuth error: %s - %s", errParam, description)
		c.send(callbackOutcome{err: oidcerr.New(oidcerr.Callback, "%s", msg)})
		_, _ = w.Write([]byte(errorPage(msg)))
		c.scheduleStop()
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		msg := "missing code or state"
		c.send(callbackOutcome{err: oidcerr.New(oidcerr.Callback, "%s", msg)})
		_, _ = w.Write([]byte(errorPage(msg)))
		c.scheduleStop()
		return
	}

	c.send(callbackOutcome{result: &CallbackResult{Code: code, State: state}})
	_, _ = w.Write([]byte(successPage()))
	c.scheduleStop()
}

// send delivers the outcome exactly once; subsequent (duplicate or retried)
// requests to the callback path are simply dropped.
func (c *CallbackListener) send(o callbackOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent {
		return
	}
	c.sent = true
	c.outcome <- o
}

func (c *CallbackListener) scheduleStop() {
	go func() {
		time.Sleep(time.Second)
		_ = c.Stop(context.Background())
	}()
}
