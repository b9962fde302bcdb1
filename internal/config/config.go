// Package config handles loading and managing outlook-mcp configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/wesm/outlook-mcp/internal/fileutil"
	"github.com/wesm/outlook-mcp/internal/scheduler"
)

// Defaults applied before the config file is read.
const (
	DefaultMaxResultCount = 50
	DefaultAuthServerURL  = "http://localhost:3000"
	DefaultGraphBaseURL   = "https://graph.microsoft.com/v1.0/"
)

// ServerConfig holds MCP server configuration.
type ServerConfig struct {
	TestMode bool `toml:"test_mode"` // Simulate Graph and mint test tokens
}

// GraphConfig holds Microsoft Graph client configuration.
type GraphConfig struct {
	BaseURL        string   `toml:"base_url"`
	MaxResultCount int      `toml:"max_result_count"` // Upper bound on $top
	RateLimitQPS   float64  `toml:"rate_limit_qps"`
	MaxRetries     int      `toml:"max_retries"`
	Timeout        Duration `toml:"timeout"`
}

// OAuthConfig holds the app registration and token storage settings.
type OAuthConfig struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	TenantID       string `toml:"tenant_id"`
	AuthServerURL  string `toml:"auth_server_url"`
	TokenStorePath string `toml:"token_store_path"`
	TokenStore     string `toml:"token_store"` // "file" or "keyring"

	// RefreshSchedule renews the token in the background while a server
	// runs, e.g. "@every 30m". Empty disables it.
	RefreshSchedule string `toml:"refresh_schedule"`
}

// Config represents the outlook-mcp configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Graph  GraphConfig  `toml:"graph"`
	OAuth  OAuthConfig  `toml:"oauth"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// Duration is a time.Duration that decodes from TOML strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// DefaultHome returns the default outlook-mcp home directory.
// Respects OUTLOOK_MCP_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("OUTLOOK_MCP_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".outlook-mcp"
	}
	return filepath.Join(home, ".outlook-mcp")
}

// NewDefaultConfig returns a configuration with default values rooted at
// homeDir.
func NewDefaultConfig(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Graph: GraphConfig{
			BaseURL:        DefaultGraphBaseURL,
			MaxResultCount: DefaultMaxResultCount,
			RateLimitQPS:   5,
			MaxRetries:     3,
			Timeout:        Duration{30 * time.Second},
		},
		OAuth: OAuthConfig{
			TenantID:       "common",
			AuthServerURL:  DefaultAuthServerURL,
			TokenStorePath: filepath.Join(homeDir, "tokens.json"),
			TokenStore:     "file",
		},
	}
}

// Load reads the configuration. With an explicit path the file must exist
// and its directory becomes the home directory unless homeDir is given.
// Otherwise config.toml is read from homeDir (or DefaultHome) if present.
// A .env file in the working directory or home directory is loaded first,
// then environment variables override file values.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	if explicit {
		path = expandPath(path)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("stat config: %w", err)
		}
		if homeDir == "" {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("resolve config path: %w", err)
			}
			homeDir = filepath.Dir(abs)
		}
	}
	if homeDir == "" {
		homeDir = DefaultHome()
	}
	homeDir = expandPath(homeDir)
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}

	loadDotEnv(homeDir)

	cfg := NewDefaultConfig(homeDir)

	// Config file is optional when not given explicitly
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, decodeError(err)
		}
	}

	cfg.applyEnv()

	cfg.OAuth.TokenStorePath = expandPath(cfg.OAuth.TokenStorePath)
	if cfg.OAuth.TokenStorePath != "" && !filepath.IsAbs(cfg.OAuth.TokenStorePath) {
		cfg.OAuth.TokenStorePath = filepath.Join(homeDir, cfg.OAuth.TokenStorePath)
	}
	if cfg.Graph.MaxResultCount <= 0 {
		cfg.Graph.MaxResultCount = DefaultMaxResultCount
	}
	switch cfg.OAuth.TokenStore {
	case "", "file", "keyring":
	default:
		return nil, fmt.Errorf("invalid oauth.token_store %q (want \"file\" or \"keyring\")", cfg.OAuth.TokenStore)
	}
	if cfg.OAuth.RefreshSchedule != "" {
		if err := scheduler.ValidateCronExpr(cfg.OAuth.RefreshSchedule); err != nil {
			return nil, fmt.Errorf("oauth.refresh_schedule: %w", err)
		}
	}

	return cfg, nil
}

// loadDotEnv loads .env from the working directory, then from homeDir.
// Variables already set are not overwritten.
func loadDotEnv(homeDir string) {
	for _, p := range []string{".env", filepath.Join(homeDir, ".env")} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// applyEnv overrides file values with the environment.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("USE_TEST_MODE"); ok {
		c.Server.TestMode = strings.EqualFold(strings.TrimSpace(v), "true")
	}
	if v := os.Getenv("MS_CLIENT_ID"); v != "" {
		c.OAuth.ClientID = v
	}
	if v := os.Getenv("MS_CLIENT_SECRET"); v != "" {
		c.OAuth.ClientSecret = v
	}
	if v := os.Getenv("MS_TENANT_ID"); v != "" {
		c.OAuth.TenantID = v
	}
	if v := os.Getenv("AUTH_SERVER_URL"); v != "" {
		c.OAuth.AuthServerURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("TOKEN_STORE_PATH"); v != "" {
		c.OAuth.TokenStorePath = v
	}
}

// decodeError adds a hint for the common Windows mistake of writing
// backslash paths in double-quoted TOML strings.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n\nhint: use forward slashes (C:/Users/me) "+
			"or single quotes ('C:\\Users\\me') for Windows paths in config.toml", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// ConfigFilePath returns the path of the config file in the home directory.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// KeyringDir returns the directory for the encrypted file keyring backend.
func (c *Config) KeyringDir() string {
	return filepath.Join(c.HomeDir, "keyring")
}

// RedirectURL is the OAuth callback served by the auth server.
func (c *Config) RedirectURL() string {
	return strings.TrimSuffix(c.OAuth.AuthServerURL, "/") + "/auth/callback"
}

// EnsureHomeDir creates the home directory with owner-only permissions.
func (c *Config) EnsureHomeDir() error {
	if err := fileutil.MkdirPrivate(c.HomeDir); err != nil {
		return fmt.Errorf("create home dir: %w", err)
	}
	return nil
}

// expandPath expands ~ to the user's home directory. On Windows, matching
// surrounding quotes (left by CMD) are stripped first.
func expandPath(path string) string {
	if runtime.GOOS == "windows" && len(path) >= 2 {
		if (path[0] == '\'' && path[len(path)-1] == '\'') || (path[0] == '"' && path[len(path)-1] == '"') {
			path = path[1 : len(path)-1]
		}
	}
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != filepath.Separator {
		return path // ~user is not supported
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
