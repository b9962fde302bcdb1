// Package graph provides a Microsoft Graph REST client with rate limiting,
// retry logic and typed errors.
package graph

import (
	"context"
	"net/url"
	"strings"
)

// HTTP methods accepted by API.Call.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPatch  = "PATCH"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// API is the single I/O boundary to Microsoft Graph.
// This interface enables mocking for tests without hitting the real API.
type API interface {
	// Call issues method against path (relative to the Graph base URL, e.g.
	// "me/messages") with the bearer token. body is JSON-encoded when non-nil
	// and the response is decoded into out when out is non-nil.
	Call(ctx context.Context, token, method, path string, body any, params Params, out any) error
}

// Param is a single query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered set of query parameters. Graph system query options
// ($top, $select, ...) keep their order so encoded queries are reproducible.
type Params []Param

// Get returns the value for key and whether it is present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// With returns a copy of p with key set to value. An existing key keeps its
// position; a new key is appended.
func (p Params) With(key, value string) Params {
	out := p.Clone()
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Param{Key: key, Value: value})
}

// Without returns a copy of p with key removed.
func (p Params) Without(key string) Params {
	out := make(Params, 0, len(p))
	for _, kv := range p {
		if kv.Key != key {
			out = append(out, kv)
		}
	}
	return out
}

// Clone returns a copy that shares no backing array with p.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	copy(out, p)
	return out
}

// Encode renders the parameters as a URL query string in insertion order.
// Keys such as "$top" are left unescaped; values are percent-encoded with
// spaces as %20.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escapeKey(kv.Key))
		b.WriteByte('=')
		b.WriteString(strings.ReplaceAll(url.QueryEscape(kv.Value), "+", "%20"))
	}
	return b.String()
}

func escapeKey(k string) string {
	if strings.HasPrefix(k, "$") {
		return "$" + url.QueryEscape(k[1:])
	}
	return url.QueryEscape(k)
}
