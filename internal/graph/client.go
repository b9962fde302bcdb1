package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultBaseURL is the Graph v1.0 endpoint; paths are relative to it.
	DefaultBaseURL = "https://graph.microsoft.com/v1.0/"

	defaultMaxRetries = 3
	maxBackoff        = 60 // Max backoff in seconds
	defaultTimeout    = 30 * time.Second
)

// Client implements API against the live Graph service.
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
	logger      *slog.Logger
	baseURL     string
	maxRetries  int
	backoff     func(attempt int) time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimiter sets a custom rate limiter.
func WithRateLimiter(rl *RateLimiter) ClientOption {
	return func(c *Client) {
		c.rateLimiter = rl
	}
}

// WithBaseURL overrides the Graph endpoint (tests, national clouds).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithMaxRetries sets how many times throttled or failed requests are retried.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient creates a new Graph API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		baseURL:    DefaultBaseURL,
		maxRetries: defaultMaxRetries,
		backoff:    calculateBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.rateLimiter == nil {
		c.rateLimiter = NewRateLimiter(5.0)
	}

	return c
}

// Call implements API.
func (c *Client) Call(ctx context.Context, token, method, path string, body any, params Params, out any) error {
	switch method {
	case MethodGet, MethodPost, MethodPatch, MethodPut, MethodDelete:
	default:
		return fmt.Errorf("unsupported HTTP method: %s", method)
	}

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
	}

	data, err := c.request(ctx, token, method, c.buildURL(path, params), bodyBytes)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// buildURL joins the base URL, the relative path and the encoded params.
func (c *Client) buildURL(path string, params Params) string {
	u := c.baseURL + strings.TrimPrefix(path, "/")
	if len(params) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + params.Encode()
}

// request makes an HTTP request with rate limiting and retry logic.
// bodyBytes can be nil for requests without a body.
func (c *Client) request(ctx context.Context, token, method, reqURL string, bodyBytes []byte) ([]byte, error) {
	if err := c.rateLimiter.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	requestID := uuid.NewString()

	var lastErr error
	var retryAfter time.Duration
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			if retryAfter > backoff {
				backoff = retryAfter
			}
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff, "url", reqURL)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
		retryAfter = 0

		// Create a new reader for each attempt so the body can be re-read on retry
		var body io.Reader
		if bodyBytes != nil {
			body = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("client-request-id", requestID)
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = &NetworkError{Err: err}
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = &NetworkError{Err: fmt.Errorf("read response: %w", err)}
			continue
		}

		c.logger.Debug("graph request",
			"method", method,
			"url", reqURL,
			"status", resp.StatusCode,
			"duration", time.Since(start),
			"request_id", requestID,
		)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
			c.logger.Debug("throttled by graph", "status", resp.StatusCode, "retry_after", retryAfter)
			c.rateLimiter.Throttle(retryAfter)
			lastErr = newHTTPError(resp.StatusCode, respBody)
			continue

		case http.StatusInternalServerError, http.StatusBadGateway:
			lastErr = newHTTPError(resp.StatusCode, respBody)
			continue

		case http.StatusUnauthorized:
			return nil, ErrUnauthorized

		default:
			return nil, newHTTPError(resp.StatusCode, respBody)
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// calculateBackoff returns the backoff duration for a retry attempt.
// Uses exponential backoff with full jitter.
func calculateBackoff(attempt int) time.Duration {
	base := float64(uint(1) << uint(attempt))
	if base > maxBackoff {
		base = maxBackoff
	}
	jittered := rand.Float64() * base
	return time.Duration(jittered * float64(time.Second))
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	if secs > maxBackoff {
		secs = maxBackoff
	}
	return time.Duration(secs) * time.Second
}

// Ensure Client implements API interface.
var _ API = (*Client)(nil)
