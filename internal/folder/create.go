package folder

import (
	"context"
	"fmt"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
)

// CreateResult reports the outcome of Create. Message is shown to the caller.
type CreateResult struct {
	Created  bool
	FolderID string
	Message  string
}

// Create makes a folder named name, under parent when parent is non-empty.
// An existing folder of the same name or a missing parent is reported in
// the result, not as an error.
func Create(ctx context.Context, api graph.API, token, name, parent string) (*CreateResult, error) {
	existing, err := mail.FolderID(ctx, api, token, name)
	if err != nil {
		return nil, fmt.Errorf("look up folder %q: %w", name, err)
	}
	if existing != "" {
		return &CreateResult{Message: fmt.Sprintf("A folder named %q already exists.", name)}, nil
	}

	endpoint := "me/mailFolders"
	if parent != "" {
		parentID, err := mail.FolderID(ctx, api, token, parent)
		if err != nil {
			return nil, fmt.Errorf("look up folder %q: %w", parent, err)
		}
		if parentID == "" {
			return &CreateResult{Message: fmt.Sprintf("Parent folder %q not found. Please specify a valid parent folder or leave it blank to create at the root level.", parent)}, nil
		}
		endpoint = "me/mailFolders/" + parentID + "/childFolders"
	}

	var created Folder
	if err := api.Call(ctx, token, graph.MethodPost, endpoint, map[string]string{"displayName": name}, nil, &created); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	if created.ID == "" {
		return &CreateResult{Message: "Failed to create folder. The server didn't return a folder ID."}, nil
	}

	location := "at the root level"
	if parent != "" {
		location = fmt.Sprintf("inside %q", parent)
	}
	return &CreateResult{
		Created:  true,
		FolderID: created.ID,
		Message:  fmt.Sprintf("Successfully created folder %q %s.", name, location),
	}, nil
}
