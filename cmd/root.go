// Package cmd wires the proxy's cobra command tree: the default action runs
// the authenticating stdio↔HTTP bridge, with a couple of narrow companion
// subcommands (version, auth clear) alongside it.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"authful-mcp-proxy/internal/oidcerr"
)

// Exit codes, matching the teacher's semantic-exit-code idiom (cmd/root.go):
// 0 success, 1 general/config error, 2 discovery/auth fatal error, 3 OAuth
// flow failure.
const (
	ExitCodeSuccess    = 0
	ExitCodeError      = 1
	ExitCodeAuthFatal  = 2
	ExitCodeAuthFailed = 3
)

var rootCmd = &cobra.Command{
	Use:   "authful-mcp-proxy",
	Short: "Authenticating bridge between a stdio MCP client and an OIDC-protected HTTP MCP server",
	Long: `authful-mcp-proxy exposes a remote HTTP-based MCP tool server to a local
client that only speaks MCP over line-delimited stdio. It performs the
OAuth 2.0 authorization-code-with-PKCE flow against the configured OIDC
provider, persists and refreshes tokens, and forwards every JSON-RPC line
on stdin to the backend as an authenticated HTTP request.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runProxy,
}

// SetVersion injects the build-time version into the root command, so
// `authful-mcp-proxy version` and `--version` report it.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the CLI entry point, called from main.main.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "authful-mcp-proxy version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps the oidcerr taxonomy (spec §7) onto the semantic exit
// codes above.
func getExitCode(err error) int {
	if oidcerr.Is(err, oidcerr.Discovery) {
		return ExitCodeAuthFatal
	}
	if oidcerr.Is(err, oidcerr.Auth) || oidcerr.Is(err, oidcerr.Token) || oidcerr.Is(err, oidcerr.Callback) || oidcerr.Is(err, oidcerr.Timeout) {
		return ExitCodeAuthFailed
	}
	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newAuthCmd())
}
