package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockCall records a single Call made against MockAPI.
type MockCall struct {
	Token  string
	Method string
	Path   string
	Body   any
	Params Params
}

// MockResponse is a scripted reply. Body is JSON-encoded and decoded into
// the caller's out value, as the real client would.
type MockResponse struct {
	Body any
	Err  error
}

// MockAPI is a mock implementation of the Graph API for testing and for
// test mode.
type MockAPI struct {
	mu sync.Mutex

	// Responses are consumed in order, one per call.
	Responses []MockResponse

	// Routes answer calls keyed by "METHOD path" once Responses is drained.
	Routes map[string]MockResponse

	// Handler answers anything not covered by Responses or Routes.
	Handler func(call MockCall) (any, error)

	// Call tracking for assertions
	Calls []MockCall
}

// NewMockAPI creates a new mock API with empty state. Unscripted calls
// return an empty JSON object.
func NewMockAPI(responses ...MockResponse) *MockAPI {
	return &MockAPI{
		Responses: responses,
		Routes:    make(map[string]MockResponse),
	}
}

// Call implements API.
func (m *MockAPI) Call(ctx context.Context, token, method, path string, body any, params Params, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	call := MockCall{Token: token, Method: method, Path: path, Body: body, Params: params.Clone()}

	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	var resp MockResponse
	var handler func(MockCall) (any, error)
	if len(m.Responses) > 0 {
		resp = m.Responses[0]
		m.Responses = m.Responses[1:]
	} else if r, ok := m.Routes[method+" "+path]; ok {
		resp = r
	} else {
		handler = m.Handler
	}
	m.mu.Unlock()

	if handler != nil {
		b, err := handler(call)
		resp = MockResponse{Body: b, Err: err}
	}
	if resp.Err != nil {
		return resp.Err
	}
	if out == nil || resp.Body == nil {
		return nil
	}

	data, err := json.Marshal(resp.Body)
	if err != nil {
		return fmt.Errorf("mock marshal: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// CallCount returns the number of calls made so far.
func (m *MockAPI) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent call, or the zero value if none.
func (m *MockAPI) LastCall() MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return MockCall{}
	}
	return m.Calls[len(m.Calls)-1]
}

// NewSimulatedAPI returns a MockAPI that answers like a small Outlook
// mailbox. It backs test mode, where no Graph credentials exist.
func NewSimulatedAPI() *MockAPI {
	m := NewMockAPI()
	m.Handler = func(call MockCall) (any, error) {
		return simulate(call, time.Now().UTC())
	}
	return m
}

func simulate(call MockCall, now time.Time) (any, error) {
	path := call.Path
	switch call.Method {
	case MethodGet:
		switch {
		case strings.Contains(path, "messageRules"):
			return map[string]any{"value": []any{}}, nil
		case strings.Contains(path, "/messages/"):
			return simulatedMessage(path[strings.LastIndex(path, "/")+1:], now), nil
		case strings.HasSuffix(path, "messages"):
			return map[string]any{"value": simulatedMessages(now)}, nil
		case strings.HasSuffix(path, "childFolders"):
			return map[string]any{"value": []any{}}, nil
		case strings.Contains(path, "mailFolders"):
			return map[string]any{"value": filterFolders(simulatedFolders(), call.Params)}, nil
		}
	case MethodPost:
		switch {
		case strings.HasSuffix(path, "sendMail"):
			return map[string]any{}, nil
		case strings.HasSuffix(path, "/move"):
			id := strings.TrimSuffix(path, "/move")
			return map[string]any{"id": id[strings.LastIndex(id, "/")+1:] + "-moved"}, nil
		case strings.HasSuffix(path, "mailFolders") || strings.HasSuffix(path, "childFolders"):
			name := bodyField(call.Body, "displayName")
			return map[string]any{"id": "simulated-folder-" + strings.ToLower(strings.ReplaceAll(name, " ", "-")), "displayName": name}, nil
		case strings.HasSuffix(path, "messageRules"):
			return map[string]any{"id": "simulated-rule-id", "displayName": bodyField(call.Body, "displayName")}, nil
		}
	}
	return map[string]any{}, nil
}

// filterFolders honors a "displayName eq '<name>'" filter.
func filterFolders(folders []map[string]any, params Params) []map[string]any {
	f, ok := params.Get("$filter")
	if !ok || !strings.HasPrefix(f, "displayName eq '") {
		return folders
	}
	name := strings.ReplaceAll(strings.TrimSuffix(strings.TrimPrefix(f, "displayName eq '"), "'"), "''", "'")
	var out []map[string]any
	for _, folder := range folders {
		if strings.EqualFold(folder["displayName"].(string), name) {
			out = append(out, folder)
		}
	}
	return out
}

func bodyField(body any, key string) string {
	data, err := json.Marshal(body)
	if err != nil {
		return ""
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return ""
	}
	s, _ := fields[key].(string)
	return s
}

func simAddress(name, address string) map[string]any {
	return map[string]any{"emailAddress": map[string]any{"name": name, "address": address}}
}

func simulatedMessages(now time.Time) []map[string]any {
	you := []any{simAddress("You", "you@example.com")}
	return []map[string]any{
		{
			"id":               "simulated-email-1",
			"subject":          "Important Meeting Tomorrow",
			"from":             simAddress("John Doe", "john@example.com"),
			"toRecipients":     you,
			"receivedDateTime": now.Format(time.RFC3339),
			"bodyPreview":      "Let's discuss the project status...",
			"hasAttachments":   false,
			"importance":       "high",
			"isRead":           false,
		},
		{
			"id":               "simulated-email-2",
			"subject":          "Weekly Report",
			"from":             simAddress("Jane Smith", "jane@example.com"),
			"toRecipients":     you,
			"receivedDateTime": now.AddDate(0, 0, -1).Format(time.RFC3339),
			"bodyPreview":      "Please find attached the weekly report...",
			"hasAttachments":   true,
			"importance":       "normal",
			"isRead":           true,
		},
		{
			"id":               "simulated-email-3",
			"subject":          "Question about the project",
			"from":             simAddress("Bob Johnson", "bob@example.com"),
			"toRecipients":     you,
			"receivedDateTime": now.AddDate(0, 0, -2).Format(time.RFC3339),
			"bodyPreview":      "I had a question about the timeline...",
			"hasAttachments":   false,
			"importance":       "normal",
			"isRead":           false,
		},
	}
}

func simulatedMessage(id string, now time.Time) map[string]any {
	return map[string]any{
		"id":               id,
		"subject":          "Simulated Email Subject",
		"from":             simAddress("Simulated Sender", "sender@example.com"),
		"toRecipients":     []any{simAddress("Recipient Name", "recipient@example.com")},
		"ccRecipients":     []any{},
		"bccRecipients":    []any{},
		"receivedDateTime": now.Format(time.RFC3339),
		"bodyPreview":      "This is a simulated email preview...",
		"body": map[string]any{
			"contentType": "text",
			"content":     "This is the full content of the simulated email. No Graph connection is available in test mode, so this placeholder is returned instead.",
		},
		"hasAttachments": false,
		"importance":     "normal",
		"isRead":         false,
	}
}

func simulatedFolders() []map[string]any {
	return []map[string]any{
		{"id": "inbox", "displayName": "Inbox", "parentFolderId": "root", "childFolderCount": 0, "totalItemCount": 3, "unreadItemCount": 2},
		{"id": "drafts", "displayName": "Drafts", "parentFolderId": "root", "childFolderCount": 0, "totalItemCount": 0, "unreadItemCount": 0},
		{"id": "sentItems", "displayName": "Sent Items", "parentFolderId": "root", "childFolderCount": 0, "totalItemCount": 0, "unreadItemCount": 0},
		{"id": "deleteditems", "displayName": "Deleted Items", "parentFolderId": "root", "childFolderCount": 0, "totalItemCount": 0, "unreadItemCount": 0},
	}
}

// Ensure MockAPI implements API interface.
var _ API = (*MockAPI)(nil)
