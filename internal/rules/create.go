package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
	"github.com/wesm/outlook-mcp/internal/textutil"
)

// DefaultSequence is the lowest sequence given to a rule created without one.
const DefaultSequence = 100

// Validation errors for rule creation and editing.
const (
	ErrBadSequence  = mail.ValidationError("Sequence must be a positive number greater than zero.")
	ErrNoName       = mail.ValidationError("Rule name is required.")
	ErrNoCondition  = mail.ValidationError("At least one condition is required. Specify fromAddresses, containsSubject, or hasAttachments.")
	ErrNoAction     = mail.ValidationError("At least one action is required. Specify moveToFolder or markAsRead.")
	ErrNoRuleName   = mail.ValidationError("Rule name is required. Please specify the exact name of an existing rule.")
	ErrNeedSequence = mail.ValidationError("A positive sequence number is required. Lower numbers run first (higher priority).")
)

// Options describes a rule to create.
type Options struct {
	Name            string
	FromAddresses   string // comma-separated
	ContainsSubject string
	HasAttachments  bool
	MoveToFolder    string // folder display name
	MarkAsRead      bool
	IsEnabled       *bool // defaults to true
	Sequence        *int  // nil picks one after the existing rules
}

// Validate checks the options in the order the caller sees errors.
func (o Options) Validate() error {
	switch {
	case o.Sequence != nil && *o.Sequence < 1:
		return ErrBadSequence
	case o.Name == "":
		return ErrNoName
	case o.FromAddresses == "" && o.ContainsSubject == "" && !o.HasAttachments:
		return ErrNoCondition
	case o.MoveToFolder == "" && !o.MarkAsRead:
		return ErrNoAction
	}
	return nil
}

// CreateResult reports the outcome of Create. Message is shown to the caller.
type CreateResult struct {
	Created  bool
	RuleID   string
	Sequence int
	Message  string
}

// nextSequence returns one past the highest existing sequence, at least
// DefaultSequence. Listing failures fall back to DefaultSequence.
func nextSequence(ctx context.Context, api graph.API, token string) (int, error) {
	existing, err := List(ctx, api, token)
	if err != nil {
		if graph.IsUnauthorized(err) {
			return 0, err
		}
		slog.Warn("determine rule sequence failed", "error", err)
		return DefaultSequence, nil
	}
	seq := DefaultSequence
	for _, r := range existing {
		if r.Sequence != nil && *r.Sequence+1 > seq {
			seq = *r.Sequence + 1
		}
	}
	return seq, nil
}

// Create validates opts and creates the rule on the inbox.
func Create(ctx context.Context, api graph.API, token string, opts Options) (*CreateResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	seq := 0
	if opts.Sequence != nil {
		seq = *opts.Sequence
	} else {
		var err error
		if seq, err = nextSequence(ctx, api, token); err != nil {
			return nil, err
		}
	}

	enabled := opts.IsEnabled == nil || *opts.IsEnabled
	rule := Rule{
		DisplayName: opts.Name,
		Sequence:    &seq,
		IsEnabled:   &enabled,
	}
	for _, addr := range textutil.SplitList(opts.FromAddresses) {
		rule.Conditions.FromAddresses = append(rule.Conditions.FromAddresses,
			mail.Recipient{EmailAddress: mail.EmailAddress{Address: addr}})
	}
	if opts.ContainsSubject != "" {
		rule.Conditions.SubjectContains = []string{opts.ContainsSubject}
	}
	rule.Conditions.HasAttachment = opts.HasAttachments
	rule.Actions.MarkAsRead = opts.MarkAsRead

	if opts.MoveToFolder != "" {
		folderID, err := mail.FolderID(ctx, api, token, opts.MoveToFolder)
		if err != nil {
			if graph.IsUnauthorized(err) {
				return nil, err
			}
			return &CreateResult{Message: fmt.Sprintf("Error resolving folder %q: %v", opts.MoveToFolder, err)}, nil
		}
		if folderID == "" {
			return &CreateResult{Message: fmt.Sprintf("Target folder %q not found. Please specify a valid folder name.", opts.MoveToFolder)}, nil
		}
		rule.Actions.MoveToFolder = folderID
	}

	var created Rule
	if err := api.Call(ctx, token, graph.MethodPost, RulesPath, rule, nil, &created); err != nil {
		return nil, fmt.Errorf("create rule: %w", err)
	}
	if created.ID == "" {
		return &CreateResult{Message: "Failed to create rule. The server didn't return a rule ID."}, nil
	}
	return &CreateResult{
		Created:  true,
		RuleID:   created.ID,
		Sequence: seq,
		Message:  fmt.Sprintf("Successfully created rule %q with sequence %d.", opts.Name, seq),
	}, nil
}

// EditSequence sets the sequence of the rule named name and returns the
// message for the caller. A missing rule is reported in the message.
func EditSequence(ctx context.Context, api graph.API, token, name string, seq int) (string, error) {
	if name == "" {
		return "", ErrNoRuleName
	}
	if seq < 1 {
		return "", ErrNeedSequence
	}

	existing, err := List(ctx, api, token)
	if err != nil {
		return "", err
	}
	var target *Rule
	for i := range existing {
		if existing[i].DisplayName == name {
			target = &existing[i]
			break
		}
	}
	if target == nil {
		return fmt.Sprintf("Rule with name %q not found.", name), nil
	}

	body := map[string]int{"sequence": seq}
	if err := api.Call(ctx, token, graph.MethodPatch, RulesPath+"/"+target.ID, body, nil, nil); err != nil {
		return "", fmt.Errorf("update rule: %w", err)
	}
	return fmt.Sprintf("Successfully updated the sequence of rule %q to %d.", name, seq), nil
}
