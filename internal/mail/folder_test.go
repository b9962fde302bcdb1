package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/wesm/outlook-mcp/internal/graph"
)

func TestResolveFolderPath(t *testing.T) {
	tests := []struct {
		name      string
		folder    string
		response  graph.MockResponse
		want      string
		wantCalls int
	}{
		{
			name:   "Empty",
			folder: "",
			want:   InboxPath,
		},
		{
			name:   "InboxAnyCase",
			folder: "INBOX",
			want:   InboxPath,
		},
		{
			name:      "Found",
			folder:    "Archive",
			response:  graph.MockResponse{Body: map[string]any{"value": []any{map[string]any{"id": "AAMk-archive", "displayName": "Archive"}}}},
			want:      "me/mailFolders/AAMk-archive/messages",
			wantCalls: 1,
		},
		{
			name:      "NotFound",
			folder:    "Nope",
			response:  graph.MockResponse{Body: map[string]any{"value": []any{}}},
			want:      InboxPath,
			wantCalls: 1,
		},
		{
			name:      "LookupError",
			folder:    "Archive",
			response:  graph.MockResponse{Err: errors.New("boom")},
			want:      InboxPath,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := graph.NewMockAPI(tt.response)
			got := ResolveFolderPath(context.Background(), api, "tok", tt.folder)
			if got != tt.want {
				t.Errorf("ResolveFolderPath(%q) = %q, want %q", tt.folder, got, tt.want)
			}
			if api.CallCount() != tt.wantCalls {
				t.Errorf("calls = %d, want %d", api.CallCount(), tt.wantCalls)
			}
		})
	}
}

func TestFolderID_EscapesName(t *testing.T) {
	api := graph.NewMockAPI(graph.MockResponse{Body: map[string]any{"value": []any{}}})

	if _, err := FolderID(context.Background(), api, "tok", "Bob's stuff"); err != nil {
		t.Fatalf("FolderID: %v", err)
	}
	call := api.LastCall()
	if call.Path != "me/mailFolders" {
		t.Errorf("path = %q", call.Path)
	}
	if v, _ := call.Params.Get("$filter"); v != "displayName eq 'Bob''s stuff'" {
		t.Errorf("$filter = %q", v)
	}
}
