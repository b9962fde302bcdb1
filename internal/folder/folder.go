// Package folder lists, creates and moves messages between Outlook mail
// folders.
package folder

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/wesm/outlook-mcp/internal/graph"
)

const (
	baseFields  = "id,displayName,parentFolderId,childFolderCount"
	countFields = baseFields + ",totalItemCount,unreadItemCount"

	// maxTopLevel is the page size for the top-level folder listing.
	maxTopLevel = 100

	// childConcurrency bounds parallel childFolders requests.
	childConcurrency = 4
)

// wellKnown folders are listed first, in this order.
var wellKnown = []string{"Inbox", "Drafts", "Sent Items", "Deleted Items", "Junk Email", "Archive"}

// Folder is a Graph mailFolder resource.
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId,omitempty"`
	ChildFolderCount int    `json:"childFolderCount,omitempty"`
	TotalItemCount   int    `json:"totalItemCount,omitempty"`
	UnreadItemCount  int    `json:"unreadItemCount,omitempty"`

	ParentName string `json:"-"` // display name of the parent, for child folders
	TopLevel   bool   `json:"-"`
}

type folderList struct {
	Value []Folder `json:"value"`
}

// Lister fetches the folder tree.
type Lister struct {
	API    graph.API
	Logger *slog.Logger
}

func (l *Lister) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// ListAll returns the top-level folders followed by the direct children of
// every folder that has any. Children are fetched concurrently; a failed
// child listing is logged and skipped.
func (l *Lister) ListAll(ctx context.Context, token string, includeCounts bool) ([]Folder, error) {
	fields := baseFields
	if includeCounts {
		fields = countFields
	}

	var top folderList
	params := graph.Params{
		{Key: "$top", Value: strconv.Itoa(maxTopLevel)},
		{Key: "$select", Value: fields},
	}
	if err := l.API.Call(ctx, token, graph.MethodGet, "me/mailFolders", nil, params, &top); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	if len(top.Value) == 0 {
		return nil, nil
	}

	children := make([][]Folder, len(top.Value))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(childConcurrency)
	for i := range top.Value {
		top.Value[i].TopLevel = true
		parent := top.Value[i]
		if parent.ChildFolderCount == 0 {
			continue
		}
		g.Go(func() error {
			var resp folderList
			path := "me/mailFolders/" + parent.ID + "/childFolders"
			err := l.API.Call(gctx, token, graph.MethodGet, path, nil, graph.Params{{Key: "$select", Value: fields}}, &resp)
			if err != nil {
				if graph.IsUnauthorized(err) {
					return err
				}
				l.logger().Warn("list child folders failed", "folder", parent.DisplayName, "error", err)
				return nil
			}
			for j := range resp.Value {
				resp.Value[j].ParentName = parent.DisplayName
			}
			children[i] = resp.Value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list child folders: %w", err)
	}

	all := top.Value
	for _, c := range children {
		all = append(all, c...)
	}
	return all, nil
}

func wellKnownRank(name string) int {
	for i, n := range wellKnown {
		if n == name {
			return i
		}
	}
	return -1
}

func countSuffix(f Folder) string {
	s := fmt.Sprintf(" - %d items", f.TotalItemCount)
	if f.UnreadItemCount > 0 {
		s += fmt.Sprintf(" (%d unread)", f.UnreadItemCount)
	}
	return s
}

// FormatList renders folders as a flat list, well-known folders first and
// the rest alphabetically.
func FormatList(folders []Folder, includeCounts bool) string {
	if len(folders) == 0 {
		return "No folders found."
	}

	sorted := make([]Folder, len(folders))
	copy(sorted, folders)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := wellKnownRank(sorted[i].DisplayName), wellKnownRank(sorted[j].DisplayName)
		switch {
		case ri >= 0 && rj >= 0:
			return ri < rj
		case ri >= 0:
			return true
		case rj >= 0:
			return false
		}
		return strings.ToLower(sorted[i].DisplayName) < strings.ToLower(sorted[j].DisplayName)
	})

	lines := make([]string, len(sorted))
	for i, f := range sorted {
		line := displayName(f)
		if f.ParentName != "" {
			line += " (in " + f.ParentName + ")"
		}
		if includeCounts {
			line += countSuffix(f)
		}
		lines[i] = line
	}
	return fmt.Sprintf("Found %d folders:\n\n", len(folders)) + strings.Join(lines, "\n")
}

func displayName(f Folder) string {
	if f.DisplayName == "" {
		return "Unknown"
	}
	return f.DisplayName
}

// FormatHierarchy renders folders as an indented tree. Children whose
// parent is not in the list are shown as roots.
func FormatHierarchy(folders []Folder, includeCounts bool) string {
	if len(folders) == 0 {
		return "No folders found."
	}

	byID := make(map[string]Folder, len(folders))
	childIDs := make(map[string][]string)
	var roots []string
	for _, f := range folders {
		if f.ID == "" {
			continue
		}
		byID[f.ID] = f
		if f.TopLevel {
			roots = append(roots, f.ID)
		}
	}
	for _, f := range folders {
		if f.TopLevel || f.ID == "" || f.ParentFolderID == "" {
			continue
		}
		if _, ok := byID[f.ParentFolderID]; ok {
			childIDs[f.ParentFolderID] = append(childIDs[f.ParentFolderID], f.ID)
		} else {
			roots = append(roots, f.ID)
		}
	}

	var lines []string
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		f := byID[id]
		line := strings.Repeat("  ", depth) + displayName(f)
		if includeCounts {
			line += countSuffix(f)
		}
		lines = append(lines, line)
		for _, c := range childIDs[id] {
			walk(c, depth+1)
		}
	}
	for _, id := range roots {
		walk(id, 0)
	}
	return "Folder Hierarchy:\n\n" + strings.Join(lines, "\n")
}
