package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is returned when Graph rejects the bearer token (401).
// Callers must re-authenticate; the request is never retried.
var ErrUnauthorized = errors.New("unauthorized (401): token may be invalid or expired")

// HTTPError is a non-2xx Graph response other than 401.
type HTTPError struct {
	StatusCode int
	Code       string // Graph error.code, e.g. "ErrorInvalidIdMalformed"
	Message    string // Graph error.message, or the raw body
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API call failed (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API call failed (%d): %s", e.StatusCode, e.Message)
}

// NotFound reports whether the error is a 404.
func (e *HTTPError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// NetworkError wraps a transport-level failure (DNS, TLS, reset, timeout).
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during API call: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is or wraps ErrUnauthorized.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// errorEnvelope is the Graph error body: {"error": {"code": ..., "message": ...}}.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// newHTTPError builds an HTTPError from a response body, preferring the
// structured Graph error message when the body parses.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		e.Code = env.Error.Code
		e.Message = env.Error.Message
		return e
	}
	e.Message = string(body)
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}
