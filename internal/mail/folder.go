package mail

import (
	"context"
	"log/slog"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
)

// InboxPath is the endpoint used for the inbox and for unknown folders.
const InboxPath = "me/messages"

// EscapeODataString escapes s for use inside a single-quoted OData literal.
func EscapeODataString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

type folderRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// FolderID looks up a mail folder by display name. "inbox" (any case)
// resolves without a call. It returns "" when no folder matches.
func FolderID(ctx context.Context, api graph.API, token, name string) (string, error) {
	if strings.EqualFold(name, "inbox") {
		return "inbox", nil
	}

	var resp struct {
		Value []folderRef `json:"value"`
	}
	params := graph.Params{{Key: "$filter", Value: "displayName eq '" + EscapeODataString(name) + "'"}}
	if err := api.Call(ctx, token, graph.MethodGet, "me/mailFolders", nil, params, &resp); err != nil {
		return "", err
	}
	if len(resp.Value) == 0 {
		return "", nil
	}
	return resp.Value[0].ID, nil
}

// ResolveFolderPath returns the messages endpoint for a folder name.
// Lookup failures and unknown names fall back to InboxPath.
func ResolveFolderPath(ctx context.Context, api graph.API, token, folder string) string {
	if folder == "" || strings.EqualFold(folder, "inbox") {
		return InboxPath
	}
	id, err := FolderID(ctx, api, token, folder)
	if err != nil {
		slog.Warn("folder lookup failed", "folder", folder, "error", err)
		return InboxPath
	}
	if id == "" {
		slog.Debug("folder not found, using inbox", "folder", folder)
		return InboxPath
	}
	return "me/mailFolders/" + id + "/messages"
}
