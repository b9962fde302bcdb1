package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/wesm/outlook-mcp/internal/config"
	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/oauth"
)

var (
	cfgFile string
	homeDir string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "outlook-mcp",
	Short: "Outlook mail tools for MCP clients",
	Long: `outlook-mcp exposes an Outlook mailbox to MCP clients through
Microsoft Graph: listing, searching, reading and sending mail, managing
folders and inbox rules.

Register an application in Azure AD, then set MS_CLIENT_ID and
MS_CLIENT_SECRET (or the [oauth] section of config.toml).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr; stdout carries the MCP protocol.
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgFile, homeDir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		if err := cfg.EnsureHomeDir(); err != nil {
			return fmt.Errorf("create home directory %s: %w", cfg.HomeDir, err)
		}

		return nil
	},
}

// Execute runs the root command with a background context.
// Prefer ExecuteContext for signal-aware execution.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the root command with the given context,
// enabling graceful shutdown when the context is cancelled.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// errClientNotConfigured explains how to supply the app registration.
func errClientNotConfigured() error {
	configPath := "<config file>"
	if cfg != nil {
		configPath = cfg.ConfigFilePath()
	}
	return fmt.Errorf(`Microsoft client id not configured.

Set MS_CLIENT_ID and MS_CLIENT_SECRET, or edit %s:
  [oauth]
  client_id = "..."
  client_secret = "..."`, configPath)
}

// openTokenStore returns the configured token store.
func openTokenStore() (oauth.TokenStore, error) {
	if cfg.OAuth.TokenStore == "keyring" {
		return oauth.OpenKeyringStore(cfg.KeyringDir())
	}
	return &oauth.FileStore{Path: cfg.OAuth.TokenStorePath}, nil
}

// newAuthManager builds the token manager from the loaded config.
func newAuthManager() (*oauth.Manager, error) {
	store, err := openTokenStore()
	if err != nil {
		return nil, err
	}
	return oauth.NewManager(oauth.Settings{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		TenantID:     cfg.OAuth.TenantID,
		RedirectURL:  cfg.RedirectURL(),
	}, store, logger), nil
}

// newGraphAPI returns the live Graph client, or the simulated mailbox in
// test mode.
func newGraphAPI() graph.API {
	if cfg.Server.TestMode {
		logger.Info("test mode enabled, using simulated mailbox")
		return graph.NewSimulatedAPI()
	}
	return graph.NewClient(
		graph.WithBaseURL(cfg.Graph.BaseURL),
		graph.WithRateLimiter(graph.NewRateLimiter(cfg.Graph.RateLimitQPS)),
		graph.WithMaxRetries(cfg.Graph.MaxRetries),
		graph.WithTimeout(cfg.Graph.Timeout.Duration),
		graph.WithLogger(logger),
	)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.outlook-mcp/config.toml)")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "home directory (overrides OUTLOOK_MCP_HOME)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
