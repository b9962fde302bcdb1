// Package oauth provides Microsoft identity platform OAuth2 flows and token
// storage for Graph access.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// Scopes requested for mail, folder and rule access. offline_access yields
// a refresh token.
var Scopes = []string{
	"offline_access",
	"User.Read",
	"Mail.Read",
	"Mail.ReadWrite",
	"Mail.Send",
	"MailboxSettings.ReadWrite",
}

// CallbackPath is where the identity platform redirects after sign-in.
const CallbackPath = "/auth/callback"

// TestTokenPrefix marks access tokens minted by CreateTestToken.
const TestTokenPrefix = "test_access_token_"

// ErrAuthRequired means no usable token exists and the user must sign in.
var ErrAuthRequired = errors.New("authentication required")

// Settings holds the app registration used for sign-in.
type Settings struct {
	ClientID     string
	ClientSecret string
	TenantID     string // "common" when empty
	RedirectURL  string // e.g. http://localhost:3000/auth/callback
}

// Manager acquires, refreshes and stores the user's token.
type Manager struct {
	config *oauth2.Config
	store  TokenStore
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	cached *oauth2.Token
}

// NewManager creates a Manager for the given app registration.
func NewManager(settings Settings, store TokenStore, logger *slog.Logger) *Manager {
	tenant := settings.TenantID
	if tenant == "" {
		tenant = "common"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			Endpoint:     microsoft.AzureADEndpoint(tenant),
			RedirectURL:  settings.RedirectURL,
			Scopes:       Scopes,
		},
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ClientID returns the configured application id.
func (m *Manager) ClientID() string {
	return m.config.ClientID
}

func (m *Manager) valid(t *oauth2.Token) bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	return t.Expiry.IsZero() || m.now().Before(t.Expiry)
}

func (m *Manager) load() (*oauth2.Token, error) {
	if m.valid(m.cached) {
		return m.cached, nil
	}
	token, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	m.cached = token
	return token, nil
}

// AccessToken returns a bearer token for Graph. An expired token is
// refreshed when a refresh token and client id are available; otherwise
// ErrAuthRequired is returned.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.load()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			m.logger.Warn("load token failed", "error", err)
		}
		return "", ErrAuthRequired
	}
	if m.valid(token) {
		return token.AccessToken, nil
	}

	fresh, err := m.refreshLocked(ctx, token)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// Refresh renews the stored token through its refresh token even when the
// access token is still valid. It keeps a long-idle sign-in alive.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	token, err := m.load()
	if err != nil {
		return ErrAuthRequired
	}
	_, err = m.refreshLocked(ctx, token)
	return err
}

// refreshLocked exchanges token's refresh token for a new token and stores
// it. Test tokens are never refreshed. m.mu must be held.
func (m *Manager) refreshLocked(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token.RefreshToken == "" || m.config.ClientID == "" || strings.HasPrefix(token.AccessToken, TestTokenPrefix) {
		return nil, ErrAuthRequired
	}

	m.logger.Debug("refreshing access token", "expiry", token.Expiry)
	fresh, err := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: token.RefreshToken}).Token()
	if err != nil {
		m.logger.Warn("token refresh failed", "error", err)
		return nil, fmt.Errorf("%w: refresh failed: %w", ErrAuthRequired, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = token.RefreshToken
	}
	if err := m.store.Save(fresh, m.config.Scopes); err != nil {
		m.logger.Warn("failed to save refreshed token", "error", err)
	}
	m.cached = fresh
	return fresh, nil
}

// Invalidate drops the cached token so the next AccessToken reloads it.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.cached = nil
	m.mu.Unlock()
}

// CreateTestToken stores a placeholder token valid for one hour.
func (m *Manager) CreateTestToken() (*oauth2.Token, error) {
	now := m.now()
	token := &oauth2.Token{
		AccessToken:  fmt.Sprintf("%s%d", TestTokenPrefix, now.Unix()),
		RefreshToken: fmt.Sprintf("test_refresh_token_%d", now.Unix()),
		TokenType:    "Bearer",
		Expiry:       now.Add(time.Hour),
	}
	if err := m.save(token); err != nil {
		return nil, err
	}
	return token, nil
}

func (m *Manager) save(token *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Save(token, m.config.Scopes); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	m.cached = token
	return nil
}

// Status describes the stored token.
type Status struct {
	HasToken      bool
	Authenticated bool // token present and unexpired
	Refreshable   bool
	Expiry        time.Time
}

// Status reports the state of the stored token without refreshing it.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, err := m.load()
	if err != nil {
		return Status{}
	}
	return Status{
		HasToken:      true,
		Authenticated: m.valid(token),
		Refreshable:   token.RefreshToken != "",
		Expiry:        token.Expiry,
	}
}

// Logout deletes the stored token.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	return m.store.Delete()
}

// AuthCodeURL returns the sign-in URL for state.
func (m *Manager) AuthCodeURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

// Exchange trades an authorization code for a token and stores it.
func (m *Manager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := m.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if err := m.save(token); err != nil {
		return nil, err
	}
	return token, nil
}

// NewState returns a random CSRF state value.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// NewCallbackHandler returns an HTTP handler that processes the OAuth
// callback, delivering the code or an error on the channels.
func NewCallbackHandler(expectedState string, codeChan chan<- string, errChan chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			errChan <- fmt.Errorf("authorization failed: %s: %s", e, q.Get("error_description"))
			fmt.Fprintf(w, "Error: %s", e)
			return
		}
		if q.Get("state") != expectedState {
			errChan <- fmt.Errorf("state mismatch: possible CSRF attack")
			fmt.Fprintf(w, "Error: state mismatch")
			return
		}
		code := q.Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no code in callback")
			fmt.Fprintf(w, "Error: no authorization code received")
			return
		}
		codeChan <- code
		fmt.Fprintf(w, "Authorization successful! You can close this window.")
	}
}

// Authorize runs the browser flow: it listens on the redirect URL, opens
// the sign-in page and stores the resulting token.
func (m *Manager) Authorize(ctx context.Context) error {
	if m.config.ClientID == "" {
		return fmt.Errorf("client id is not configured")
	}
	redirect, err := url.Parse(m.config.RedirectURL)
	if err != nil || redirect.Host == "" {
		return fmt.Errorf("invalid redirect url %q", m.config.RedirectURL)
	}

	state, err := NewState()
	if err != nil {
		return err
	}

	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.Handle(redirect.Path, NewCallbackHandler(state, codeChan, errChan))

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", redirect.Host, err)
	}
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(ln); err != http.ErrServerClosed {
			select {
			case errChan <- err:
			default:
			}
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := m.AuthCodeURL(state)
	fmt.Printf("Opening browser for authorization...\n")
	fmt.Printf("If browser doesn't open, visit:\n%s\n\n", authURL)
	if err := openBrowser(authURL); err != nil {
		m.logger.Warn("failed to open browser", "error", err)
	}

	select {
	case code := <-codeChan:
		_, err := m.Exchange(ctx, code)
		return err
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// openBrowser opens the default browser to the given URL.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
