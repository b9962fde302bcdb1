package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var authForce bool

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Sign in to Microsoft from the terminal",
	Long: `Open the Microsoft sign-in page in a browser and store the token.

A temporary listener is bound to the configured redirect URL, so the
auth-server command must not be running at the same time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.OAuth.ClientID == "" {
			return errClientNotConfigured()
		}
		auth, err := newAuthManager()
		if err != nil {
			return fmt.Errorf("open token store: %w", err)
		}

		if st := auth.Status(); st.Authenticated && !authForce {
			fmt.Printf("Already authenticated (token expires %s). Use --force to sign in again.\n",
				st.Expiry.Local().Format(time.DateTime))
			return nil
		}

		if err := auth.Authorize(cmd.Context()); err != nil {
			return fmt.Errorf("authorize: %w", err)
		}
		fmt.Println("Authentication successful.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := newAuthManager()
		if err != nil {
			return fmt.Errorf("open token store: %w", err)
		}
		if err := auth.Logout(); err != nil {
			return fmt.Errorf("logout: %w", err)
		}
		fmt.Println("Stored token removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(logoutCmd)
	authCmd.Flags().BoolVar(&authForce, "force", false, "sign in even when a valid token exists")
}
