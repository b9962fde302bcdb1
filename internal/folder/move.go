package folder

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
	"github.com/wesm/outlook-mcp/internal/textutil"
)

const (
	// maxReportedErrors is how many move failures are listed individually.
	maxReportedErrors = 3

	// maxErrorRunes caps each listed error message.
	maxErrorRunes = 200
)

// MoveFailure is a message that could not be moved.
type MoveFailure struct {
	ID  string
	Err error
}

// MoveResult reports which messages moved.
type MoveResult struct {
	Target   string
	Moved    []string
	Failed   []MoveFailure
	NotFound bool // target folder does not exist
}

// Move moves each message to the folder named target. Individual failures
// are collected; an unauthorized response aborts the batch.
func Move(ctx context.Context, api graph.API, token string, ids []string, target string) (*MoveResult, error) {
	res := &MoveResult{Target: target}

	targetID, err := mail.FolderID(ctx, api, token, target)
	if err != nil {
		return nil, fmt.Errorf("look up folder %q: %w", target, err)
	}
	if targetID == "" {
		res.NotFound = true
		return res, nil
	}

	body := map[string]string{"destinationId": targetID}
	for _, id := range ids {
		err := api.Call(ctx, token, graph.MethodPost, "me/messages/"+url.PathEscape(id)+"/move", body, nil, nil)
		if err != nil {
			if graph.IsUnauthorized(err) || ctx.Err() != nil {
				return nil, fmt.Errorf("move %s: %w", id, err)
			}
			slog.Debug("move failed", "id", id, "error", err)
			res.Failed = append(res.Failed, MoveFailure{ID: id, Err: err})
			continue
		}
		res.Moved = append(res.Moved, id)
	}
	return res, nil
}

// Summary renders the result for the caller.
func (r *MoveResult) Summary() string {
	if r.NotFound {
		return fmt.Sprintf("Target folder %q not found. Please specify a valid folder name.", r.Target)
	}

	var b strings.Builder
	if len(r.Moved) > 0 {
		fmt.Fprintf(&b, "Successfully moved %d email(s) to %q.", len(r.Moved), r.Target)
	}
	if len(r.Failed) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Failed to move %d email(s). Errors:", len(r.Failed))
		n := min(len(r.Failed), maxReportedErrors)
		for i := 0; i < n; i++ {
			fmt.Fprintf(&b, "\n- Email %d: %s", i+1, textutil.TruncateRunes(textutil.FirstLine(r.Failed[i].Err.Error()), maxErrorRunes))
		}
		if len(r.Failed) > n {
			fmt.Fprintf(&b, "\n...and %d more.", len(r.Failed)-n)
		}
	}
	return b.String()
}
