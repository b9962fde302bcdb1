package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/wesm/outlook-mcp/internal/authserver"
	mcpserver "github.com/wesm/outlook-mcp/internal/mcp"
)

var mcpWithAuthServer bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

Tools: about, authenticate, check-auth-status, list-emails, search-emails,
read-email, send-email, list-folders, create-folder, move-emails,
list-rules, create-rule, edit-rule-sequence.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "outlook": {
        "command": "outlook-mcp",
        "args": ["mcp", "--auth-server"]
      }
    }
  }

With USE_TEST_MODE=true the server answers from a simulated mailbox and
the authenticate tool issues a local test token.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpWithAuthServer, "auth-server", false, "also run the OAuth callback server at auth_server_url")
}

func runMCP(cmd *cobra.Command, args []string) error {
	auth, err := newAuthManager()
	if err != nil {
		return fmt.Errorf("open token store: %w", err)
	}
	if !cfg.Server.TestMode && auth.ClientID() == "" {
		logger.Warn("MS_CLIENT_ID is not set; authentication will fail until it is configured")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stopRefresh, err := startTokenRefresh(auth)
	if err != nil {
		return err
	}
	defer stopRefresh()

	if mcpWithAuthServer && !cfg.Server.TestMode {
		addr, err := listenAddr(cfg.OAuth.AuthServerURL)
		if err != nil {
			return err
		}
		srv := authserver.NewServer(auth, logger)
		go func() {
			if err := srv.Start(addr); err != nil {
				logger.Error("auth server stopped", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		logger.Warn("stdin is a terminal; the MCP server expects JSON-RPC from an MCP client")
	}

	logger.Info("starting MCP server", "version", mcpserver.ServerVersion, "test_mode", cfg.Server.TestMode)
	err = mcpserver.Serve(ctx, mcpserver.Options{
		API:           newGraphAPI(),
		Auth:          auth,
		TestMode:      cfg.Server.TestMode,
		AuthServerURL: cfg.OAuth.AuthServerURL,
		MaxResults:    cfg.Graph.MaxResultCount,
		Logger:        logger,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
