package search

import (
	"fmt"

	"github.com/wesm/outlook-mcp/internal/mail"
)

// NoResultsText is rendered when a search returns no messages.
const NoResultsText = "No emails found matching your search criteria."

// Format renders res as a numbered list. When more than one strategy ran,
// the header names the one that produced the messages.
func Format(res *Result) string {
	if res == nil || len(res.Messages) == 0 {
		return NoResultsText
	}

	info := ""
	if len(res.Trace) > 1 {
		info = fmt.Sprintf("\n(Search used %s strategy)", res.Trace.Last().Strategy)
	}
	return fmt.Sprintf("Found %d emails matching your search criteria:%s\n\n", len(res.Messages), info) +
		mail.FormatEntries(res.Messages)
}
