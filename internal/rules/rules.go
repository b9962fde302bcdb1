// Package rules manages Outlook inbox message rules.
package rules

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
)

// RulesPath is the inbox messageRules collection.
const RulesPath = "me/mailFolders/inbox/messageRules"

// unsequenced sorts rules without a sequence last.
const unsequenced = 9999

// Conditions is the subset of messageRulePredicates this package renders.
type Conditions struct {
	FromAddresses   []mail.Recipient `json:"fromAddresses,omitempty"`
	SubjectContains []string         `json:"subjectContains,omitempty"`
	BodyContains    []string         `json:"bodyContains,omitempty"`
	HasAttachment   bool             `json:"hasAttachment,omitempty"`
	Importance      string           `json:"importance,omitempty"`
}

// Actions is the subset of messageRuleActions this package renders.
type Actions struct {
	MoveToFolder   string           `json:"moveToFolder,omitempty"`
	CopyToFolder   string           `json:"copyToFolder,omitempty"`
	MarkAsRead     bool             `json:"markAsRead,omitempty"`
	MarkImportance string           `json:"markImportance,omitempty"`
	ForwardTo      []mail.Recipient `json:"forwardTo,omitempty"`
	Delete         bool             `json:"delete,omitempty"`
}

// Rule is a Graph messageRule resource.
type Rule struct {
	ID          string     `json:"id,omitempty"`
	DisplayName string     `json:"displayName"`
	Sequence    *int       `json:"sequence,omitempty"`
	IsEnabled   *bool      `json:"isEnabled,omitempty"`
	Conditions  Conditions `json:"conditions"`
	Actions     Actions    `json:"actions"`
}

// Enabled reports whether the rule is enabled; rules default to enabled.
func (r Rule) Enabled() bool {
	return r.IsEnabled == nil || *r.IsEnabled
}

func (r Rule) sortKey() int {
	if r.Sequence == nil {
		return unsequenced
	}
	return *r.Sequence
}

// List returns the inbox rules.
func List(ctx context.Context, api graph.API, token string) ([]Rule, error) {
	var resp struct {
		Value []Rule `json:"value"`
	}
	if err := api.Call(ctx, token, graph.MethodGet, RulesPath, nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return resp.Value, nil
}

func addresses(rs []mail.Recipient) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.EmailAddress.Address
		if parts[i] == "" {
			parts[i] = "unknown"
		}
	}
	return strings.Join(parts, ", ")
}

// FormatConditions renders a rule's conditions on one line.
func FormatConditions(r Rule) string {
	var parts []string
	c := r.Conditions
	if len(c.FromAddresses) > 0 {
		parts = append(parts, "From: "+addresses(c.FromAddresses))
	}
	if len(c.SubjectContains) > 0 {
		parts = append(parts, fmt.Sprintf("Subject contains: %q", strings.Join(c.SubjectContains, ", ")))
	}
	if len(c.BodyContains) > 0 {
		parts = append(parts, fmt.Sprintf("Body contains: %q", strings.Join(c.BodyContains, ", ")))
	}
	if c.HasAttachment {
		parts = append(parts, "Has attachment")
	}
	if c.Importance != "" {
		parts = append(parts, "Importance: "+c.Importance)
	}
	return strings.Join(parts, "; ")
}

// FormatActions renders a rule's actions on one line.
func FormatActions(r Rule) string {
	var parts []string
	a := r.Actions
	if a.MoveToFolder != "" {
		parts = append(parts, "Move to folder: "+a.MoveToFolder)
	}
	if a.CopyToFolder != "" {
		parts = append(parts, "Copy to folder: "+a.CopyToFolder)
	}
	if a.MarkAsRead {
		parts = append(parts, "Mark as read")
	}
	if a.MarkImportance != "" {
		parts = append(parts, "Mark importance: "+a.MarkImportance)
	}
	if len(a.ForwardTo) > 0 {
		parts = append(parts, "Forward to: "+addresses(a.ForwardTo))
	}
	if a.Delete {
		parts = append(parts, "Delete")
	}
	return strings.Join(parts, "; ")
}

func headline(i int, r Rule) string {
	disabled := ""
	if !r.Enabled() {
		disabled = " (Disabled)"
	}
	seq := "N/A"
	if r.Sequence != nil {
		seq = fmt.Sprint(*r.Sequence)
	}
	return fmt.Sprintf("%d. %s%s - Sequence: %s", i+1, r.DisplayName, disabled, seq)
}

// FormatList renders rules in execution order. With details, each rule is
// followed by its conditions and actions.
func FormatList(rules []Rule, details bool) string {
	if len(rules) == 0 {
		return "No inbox rules found.\n\nTip: You can create rules using the 'create-rule' tool. " +
			"Rules are processed in order of their sequence number (lower numbers are processed first)."
	}

	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].sortKey() < sorted[j].sortKey() })

	header := fmt.Sprintf("Found %d inbox rules (sorted by execution order):\n\n", len(rules))
	entries := make([]string, len(sorted))
	for i, r := range sorted {
		entry := headline(i, r)
		if details {
			if c := FormatConditions(r); c != "" {
				entry += "\n   Conditions: " + c
			}
			if a := FormatActions(r); a != "" {
				entry += "\n   Actions: " + a
			}
		}
		entries[i] = entry
	}

	if details {
		return header + strings.Join(entries, "\n\n") +
			"\n\nRules are processed in order of their sequence number. You can change rule order using the 'edit-rule-sequence' tool."
	}
	return header + strings.Join(entries, "\n") +
		"\n\nTip: Use 'list-rules with includeDetails=true' to see more information about each rule."
}
