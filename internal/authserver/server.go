// Package authserver serves the local OAuth sign-in endpoints that the
// authenticate tool points users at.
package authserver

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"github.com/wesm/outlook-mcp/internal/oauth"
)

// stateTTL bounds how long a sign-in may take.
const stateTTL = 10 * time.Minute

// Authenticator is the part of oauth.Manager the server needs.
type Authenticator interface {
	ClientID() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Server is the sign-in HTTP server.
type Server struct {
	auth        Authenticator
	logger      *slog.Logger
	router      chi.Router
	server      *http.Server
	limiter     *clientLimiter
	now         func() time.Time

	mu     sync.Mutex
	states map[string]time.Time // state -> expiry
}

// NewServer creates a sign-in server.
func NewServer(auth Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		auth:   auth,
		logger: logger,
		now:    time.Now,
		states: make(map[string]time.Time),
	}
	s.router = s.setupRouter()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.loggerMiddleware)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	s.limiter = newClientLimiter(2, 10)
	r.Use(throttle(s.limiter))

	r.Get("/health", s.handleHealth)
	r.Get("/auth", s.handleAuth)
	r.Get(oauth.CallbackPath, s.handleCallback)

	return r
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Start listens on addr (host:port) until Shutdown. It returns nil once
// shut down, including when Shutdown ran first.
func (s *Server) Start(addr string) error {
	s.server.Addr = addr
	s.logger.Info("starting auth server", "addr", addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down auth server")
	return s.server.Shutdown(ctx)
}

// loggerMiddleware logs HTTP requests. Query strings are omitted since
// they carry authorization codes.
func (s *Server) loggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// addState records a new state and drops expired ones.
func (s *Server) addState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(stateTTL)
}

// consumeState reports whether state was issued and unexpired. A state is
// accepted once.
func (s *Server) consumeState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return !s.now().After(exp)
}

// handleAuth redirects to the Microsoft sign-in page.
func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	if s.auth.ClientID() == "" {
		writePage(w, http.StatusInternalServerError, "Configuration error",
			"No client id is configured. Set MS_CLIENT_ID or [oauth] client_id.")
		return
	}
	if id := r.URL.Query().Get("client_id"); id != "" && id != s.auth.ClientID() {
		writePage(w, http.StatusBadRequest, "Authentication failed", "Unknown client id.")
		return
	}

	state, err := oauth.NewState()
	if err != nil {
		s.logger.Error("generate state failed", "error", err)
		writePage(w, http.StatusInternalServerError, "Authentication failed", "Could not start sign-in.")
		return
	}
	s.addState(state)
	http.Redirect(w, r, s.auth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback completes the sign-in and stores the token.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		s.logger.Warn("sign-in rejected", "error", e, "description", q.Get("error_description"))
		writePage(w, http.StatusBadRequest, "Authentication failed", fmt.Sprintf("%s: %s", e, q.Get("error_description")))
		return
	}
	if !s.consumeState(q.Get("state")) {
		writePage(w, http.StatusBadRequest, "Authentication failed", "Invalid or expired state. Please start again.")
		return
	}
	code := q.Get("code")
	if code == "" {
		writePage(w, http.StatusBadRequest, "Authentication failed", "No authorization code received.")
		return
	}

	if _, err := s.auth.Exchange(r.Context(), code); err != nil {
		s.logger.Error("token exchange failed", "error", err)
		writePage(w, http.StatusInternalServerError, "Authentication failed", "Could not exchange the authorization code.")
		return
	}
	s.logger.Info("sign-in complete")
	writePage(w, http.StatusOK, "Authentication successful",
		"You can close this window and return to your MCP client.")
}

func writePage(w http.ResponseWriter, status int, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1><p>%s</p></body></html>",
		html.EscapeString(title), html.EscapeString(title), html.EscapeString(message))
}
