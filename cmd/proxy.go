package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"authful-mcp-proxy/internal/bridge"
	"authful-mcp-proxy/internal/config"
	"authful-mcp-proxy/internal/logging"
	"authful-mcp-proxy/internal/middleware"
	"authful-mcp-proxy/internal/oidc"
)

func runProxy(cmd *cobra.Command, args []string) error {
	logging.Init(slog.LevelInfo)
	banner := logging.NewLogger(true)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	oidcClient, err := oidc.NewOidcClient(ctx, cfg.OidcIssuerURL, cfg.OidcClientID, cfg.OidcClientSecret, cfg.OidcScopes, cfg.OidcRedirectURL, nil)
	if err != nil {
		return err
	}

	auth := middleware.New(oidcClient, nil)

	var dump *bridge.MessageDump
	if cfg.DumpMessagesPath != "" {
		dump, err = bridge.NewMessageDump(cfg.DumpMessagesPath)
		if err != nil {
			return err
		}
		defer dump.Close()
		banner.Info("message dump enabled: %s", cfg.DumpMessagesPath)
	}

	banner.Banner("authful-mcp-proxy forwarding stdio to %s (issuer %s)", cfg.BackendURL, cfg.OidcIssuerURL)

	b := &bridge.StdioBridge{
		In:         os.Stdin,
		Out:        os.Stdout,
		Client:     auth,
		BackendURL: cfg.BackendURL,
		Dump:       dump,
	}

	if err := b.Run(ctx); err != nil {
		return fmt.Errorf("stdio bridge terminated: %w", err)
	}
	return nil
}
