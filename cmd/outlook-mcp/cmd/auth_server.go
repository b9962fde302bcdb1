package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wesm/outlook-mcp/internal/authserver"
)

var authServerCmd = &cobra.Command{
	Use:   "auth-server",
	Short: "Run the OAuth callback server",
	Long: `Run the HTTP server that completes Microsoft sign-in.

The authenticate tool points users at <auth_server_url>/auth. The server
redirects to Microsoft and stores the token when the callback arrives at
<auth_server_url>/auth/callback, which must match the redirect URI of the
Azure app registration.

Use Ctrl+C to stop the server.`,
	RunE: runAuthServer,
}

func init() {
	rootCmd.AddCommand(authServerCmd)
}

// listenAddr returns the host:port to bind for an auth server URL.
func listenAddr(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid auth_server_url %q", rawURL)
	}
	if u.Port() == "" {
		if u.Scheme == "https" {
			return u.Hostname() + ":443", nil
		}
		return u.Hostname() + ":80", nil
	}
	return u.Host, nil
}

func runAuthServer(cmd *cobra.Command, args []string) error {
	if cfg.OAuth.ClientID == "" {
		return errClientNotConfigured()
	}
	addr, err := listenAddr(cfg.OAuth.AuthServerURL)
	if err != nil {
		return err
	}

	auth, err := newAuthManager()
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	srv := authserver.NewServer(auth, logger)

	stopRefresh, err := startTokenRefresh(auth)
	if err != nil {
		return err
	}
	defer stopRefresh()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(addr)
	}()

	fmt.Printf("Auth server listening on %s\n", cfg.OAuth.AuthServerURL)
	fmt.Printf("  Sign in:  %s/auth?client_id=%s\n", cfg.OAuth.AuthServerURL, url.QueryEscape(cfg.OAuth.ClientID))
	fmt.Printf("  Callback: %s\n", cfg.RedirectURL())
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop.")

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("auth server: %w", err)
		}
		return nil
	case <-cmd.Context().Done():
		logger.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return cmd.Context().Err()
}
