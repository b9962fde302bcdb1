package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := newAuthManager()
		if err != nil {
			return fmt.Errorf("open token store: %w", err)
		}
		st := auth.Status()

		store := cfg.OAuth.TokenStorePath
		if cfg.OAuth.TokenStore == "keyring" {
			store = "keyring (" + cfg.KeyringDir() + ")"
		}

		fmt.Printf("Home:        %s\n", cfg.HomeDir)
		fmt.Printf("Token store: %s\n", store)
		fmt.Printf("Client ID:   %s\n", valueOr(cfg.OAuth.ClientID, "(not set)"))
		fmt.Printf("Tenant:      %s\n", cfg.OAuth.TenantID)
		fmt.Printf("Test mode:   %v\n", cfg.Server.TestMode)
		fmt.Println()

		switch {
		case !st.HasToken:
			fmt.Println("Not authenticated")
		case st.Authenticated:
			fmt.Printf("Authenticated and ready (token expires %s)\n", st.Expiry.Local().Format(time.DateTime))
		case st.Refreshable:
			fmt.Println("Token expired; it will be refreshed on next use")
		default:
			fmt.Println("Token expired; run 'outlook-mcp auth' to sign in again")
		}
		return nil
	},
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
