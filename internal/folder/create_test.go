package folder

import (
	"context"
	"errors"
	"testing"

	"github.com/wesm/outlook-mcp/internal/graph"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name        string
		folderName  string
		parent      string
		responses   []graph.MockResponse
		wantCreated bool
		wantMessage string
		wantPath    string
	}{
		{
			name:       "Root",
			folderName: "Receipts",
			responses: []graph.MockResponse{
				folderResponse(),
				{Body: map[string]any{"id": "new-id", "displayName": "Receipts"}},
			},
			wantCreated: true,
			wantMessage: `Successfully created folder "Receipts" at the root level.`,
			wantPath:    "me/mailFolders",
		},
		{
			name:       "UnderParent",
			folderName: "2024",
			parent:     "Receipts",
			responses: []graph.MockResponse{
				folderResponse(),
				folderResponse(map[string]any{"id": "rec-id", "displayName": "Receipts"}),
				{Body: map[string]any{"id": "new-id"}},
			},
			wantCreated: true,
			wantMessage: `Successfully created folder "2024" inside "Receipts".`,
			wantPath:    "me/mailFolders/rec-id/childFolders",
		},
		{
			name:       "AlreadyExists",
			folderName: "Receipts",
			responses: []graph.MockResponse{
				folderResponse(map[string]any{"id": "rec-id", "displayName": "Receipts"}),
			},
			wantMessage: `A folder named "Receipts" already exists.`,
			wantPath:    "me/mailFolders",
		},
		{
			name:       "MissingParent",
			folderName: "2024",
			parent:     "Nope",
			responses:  []graph.MockResponse{folderResponse(), folderResponse()},
			wantMessage: `Parent folder "Nope" not found. Please specify a valid parent folder ` +
				`or leave it blank to create at the root level.`,
			wantPath: "me/mailFolders",
		},
		{
			name:        "NoIDReturned",
			folderName:  "Receipts",
			responses:   []graph.MockResponse{folderResponse(), {Body: map[string]any{}}},
			wantMessage: "Failed to create folder. The server didn't return a folder ID.",
			wantPath:    "me/mailFolders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := graph.NewMockAPI(tt.responses...)
			res, err := Create(context.Background(), api, "tok", tt.folderName, tt.parent)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if res.Created != tt.wantCreated {
				t.Errorf("Created = %v, want %v", res.Created, tt.wantCreated)
			}
			if res.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", res.Message, tt.wantMessage)
			}
			if got := api.LastCall().Path; got != tt.wantPath {
				t.Errorf("last path = %q, want %q", got, tt.wantPath)
			}
		})
	}
}

func TestCreate_Error(t *testing.T) {
	api := graph.NewMockAPI(folderResponse(), graph.MockResponse{Err: &graph.HTTPError{StatusCode: 400, Message: "bad name"}})

	_, err := Create(context.Background(), api, "tok", "x", "")
	var httpErr *graph.HTTPError
	if !errors.As(err, &httpErr) {
		t.Errorf("err = %v, want *HTTPError", err)
	}
}
