package mail

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
)

// ListMessages returns the newest count messages at endpoint.
func ListMessages(ctx context.Context, api graph.API, token, endpoint string, count int) ([]MessageSummary, error) {
	params := graph.Params{
		{Key: "$top", Value: strconv.Itoa(count)},
		{Key: "$orderby", Value: "receivedDateTime desc"},
		{Key: "$select", Value: SummaryFields},
	}
	var list MessageList
	if err := api.Call(ctx, token, graph.MethodGet, endpoint, nil, params, &list); err != nil {
		return nil, err
	}
	return list.Value, nil
}

// FormatEntries renders messages as numbered entries separated by blank lines.
func FormatEntries(msgs []MessageSummary) string {
	entries := make([]string, len(msgs))
	for i, m := range msgs {
		unread := ""
		if m.Unread() {
			unread = "[UNREAD] "
		}
		subject := m.Subject
		if subject == "" {
			subject = "No Subject"
		}
		id := m.ID
		if id == "" {
			id = "unknown"
		}
		entries[i] = fmt.Sprintf("%d. %s%s - From: %s (%s)\nSubject: %s\nID: %s\n",
			i+1, unread, m.ReceivedDateTime, m.SenderName(), m.SenderAddress(), subject, id)
	}
	return strings.Join(entries, "\n")
}

// FormatList renders a folder listing.
func FormatList(folder string, msgs []MessageSummary) string {
	if len(msgs) == 0 {
		return fmt.Sprintf("No emails found in %s.", folder)
	}
	return fmt.Sprintf("Found %d emails in %s:\n\n", len(msgs), folder) + FormatEntries(msgs)
}
