package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wesm/outlook-mcp/internal/folder"
	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
	"github.com/wesm/outlook-mcp/internal/oauth"
	"github.com/wesm/outlook-mcp/internal/rules"
	"github.com/wesm/outlook-mcp/internal/search"
	"github.com/wesm/outlook-mcp/internal/textutil"
)

const (
	defaultCount  = 10
	defaultFolder = "inbox"

	authRequiredText = "Authentication required. Please use the 'authenticate' tool first."
	mailboxMismatch  = "doesn't belong to the targeted mailbox"
	aboutText        = "📧 MODULAR Outlook Assistant MCP Server v" + ServerVersion + " 📧\n\n" +
		"Provides access to Microsoft Outlook email, calendar, and contacts through Microsoft Graph API.\n" +
		"Implemented with a modular architecture for improved maintainability."
	sequenceTip = "\n\nTip: You can specify a 'sequence' parameter when creating rules to control their " +
		"execution order. Lower sequence numbers run first."
)

type handlers struct {
	api           graph.API
	auth          Authenticator
	resolver      *search.Resolver
	folders       *folder.Lister
	testMode      bool
	authServerURL string
	maxResults    int
	logger        *slog.Logger
}

// stringArg returns a trimmed string argument, or "".
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

// bodyArg returns the message body untrimmed; blank bodies count as empty.
func bodyArg(args map[string]any) string {
	v, _ := args["body"].(string)
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return v
}

// boolArg reports whether the argument is explicitly true.
func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// optBoolArg returns nil when the argument is absent.
func optBoolArg(args map[string]any, key string) *bool {
	v, ok := args[key].(bool)
	if !ok {
		return nil
	}
	return &v
}

// intArg returns the floor of a numeric argument and whether it was given.
func intArg(args map[string]any, key string) (int, bool) {
	v, ok := args[key].(float64)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Floor(v)), true
}

// countArg extracts count, defaulting to 10 and clamped to [1, maxResults].
func (h *handlers) countArg(args map[string]any) int {
	n, ok := intArg(args, "count")
	if !ok || n < 1 {
		n = defaultCount
	}
	return min(n, h.maxResults)
}

func textResult(text string) *mcp.CallToolResult {
	return mcp.NewToolResultText(text)
}

// isAuthError reports whether err means the user must sign in again.
func isAuthError(err error) bool {
	return errors.Is(err, oauth.ErrAuthRequired) ||
		errors.Is(err, search.ErrAuthRequired) ||
		graph.IsUnauthorized(err)
}

// failure renders err for the caller as "Error <action>: <err>", or the
// authentication prompt for credential failures.
func (h *handlers) failure(action string, err error) *mcp.CallToolResult {
	if isAuthError(err) {
		if graph.IsUnauthorized(err) {
			// The cached token was rejected; reload it on the next call.
			h.auth.Invalidate()
		}
		return mcp.NewToolResultError(authRequiredText)
	}
	var verr mail.ValidationError
	if errors.As(err, &verr) {
		return mcp.NewToolResultError(verr.Error())
	}
	h.logger.Error("tool failed", "action", action, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("Error %s: %v", action, err))
}

func (h *handlers) about(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResult(aboutText), nil
}

func (h *handlers) authenticate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	force := boolArg(args, "force")

	if h.testMode {
		if _, err := h.auth.CreateTestToken(); err != nil {
			return h.failure("authenticating", err), nil
		}
		return textResult("Successfully authenticated with Microsoft Graph API (test mode)"), nil
	}

	if !force && h.auth.Status().Authenticated {
		return textResult("Already authenticated with Microsoft Graph API. Use force=true to re-authenticate."), nil
	}

	authURL := fmt.Sprintf("%s/auth?client_id=%s",
		strings.TrimSuffix(h.authServerURL, "/"), url.QueryEscape(h.auth.ClientID()))
	return textResult("Authentication required. Please visit the following URL to authenticate with Microsoft: " +
		authURL + "\n\nAfter authentication, you will be redirected back to this application."), nil
}

func (h *handlers) checkAuthStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !h.auth.Status().Authenticated {
		return textResult("Not authenticated"), nil
	}
	return textResult("Authenticated and ready"), nil
}

func (h *handlers) listEmails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	folderName := stringArg(args, "folder")
	if folderName == "" {
		folderName = defaultFolder
	}
	count := h.countArg(args)

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("listing emails", err), nil
	}

	endpoint := mail.ResolveFolderPath(ctx, h.api, token, folderName)
	msgs, err := mail.ListMessages(ctx, h.api, token, endpoint, count)
	if err != nil {
		return h.failure("listing emails", err), nil
	}
	return textResult(mail.FormatList(folderName, msgs)), nil
}

// searchEmails runs the progressive search over the requested folder.
func (h *handlers) searchEmails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	folderName := stringArg(args, "folder")
	if folderName == "" {
		folderName = defaultFolder
	}
	count := h.countArg(args)

	terms := search.SearchTerms{
		Query:   stringArg(args, "query"),
		From:    stringArg(args, "from"),
		To:      stringArg(args, "to"),
		Subject: stringArg(args, "subject"),
	}
	filters := search.FilterTerms{
		HasAttachments: optBoolArg(args, "hasAttachments"),
		UnreadOnly:     optBoolArg(args, "unreadOnly"),
	}

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("searching emails", err), nil
	}

	endpoint := mail.ResolveFolderPath(ctx, h.api, token, folderName)
	res, err := h.resolver.Search(ctx, endpoint, token, terms, filters, count)
	if err != nil {
		return h.failure("searching emails", err), nil
	}
	h.logger.Debug("search complete", "folder", folderName, "strategies", res.Trace.Strategies(), "count", len(res.Messages))
	return textResult(search.Format(res)), nil
}

func (h *handlers) readEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := stringArg(args, "id")
	if id == "" {
		return mcp.NewToolResultError("Email ID is required."), nil
	}

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("accessing email", err), nil
	}

	msg, err := mail.GetMessage(ctx, h.api, token, id)
	if err != nil {
		if isAuthError(err) {
			return h.failure("accessing email", err), nil
		}
		var httpErr *graph.HTTPError
		if errors.As(err, &httpErr) && httpErr.NotFound() {
			return mcp.NewToolResultError(fmt.Sprintf("Email with ID %s not found.", id)), nil
		}
		if strings.Contains(err.Error(), mailboxMismatch) {
			return mcp.NewToolResultError("The email ID seems invalid or doesn't belong to your mailbox. " +
				"Please try with a different email ID."), nil
		}
		h.logger.Error("read email failed", "id", id, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Failed to read email: %v", err)), nil
	}
	if msg.ID == "" {
		return mcp.NewToolResultError(fmt.Sprintf("Email with ID %s not found.", id)), nil
	}
	return textResult(mail.FormatMessage(msg)), nil
}

func (h *handlers) sendEmail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sendReq, err := mail.BuildSendRequest(mail.Draft{
		To:              stringArg(args, "to"),
		CC:              stringArg(args, "cc"),
		BCC:             stringArg(args, "bcc"),
		Subject:         stringArg(args, "subject"),
		Body:            bodyArg(args),
		Importance:      stringArg(args, "importance"),
		SaveToSentItems: optBoolArg(args, "saveToSentItems"),
	})
	if err != nil {
		return h.failure("sending email", err), nil
	}

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("sending email", err), nil
	}
	if err := mail.Send(ctx, h.api, token, sendReq); err != nil {
		return h.failure("sending email", err), nil
	}
	return textResult(mail.FormatSent(sendReq)), nil
}

func (h *handlers) listFolders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	includeCounts := boolArg(args, "includeItemCounts")
	includeChildren := boolArg(args, "includeChildren")

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("listing folders", err), nil
	}

	folders, err := h.folders.ListAll(ctx, token, includeCounts)
	if err != nil {
		return h.failure("listing folders", err), nil
	}
	if includeChildren {
		return textResult(folder.FormatHierarchy(folders, includeCounts)), nil
	}
	return textResult(folder.FormatList(folders, includeCounts)), nil
}

func (h *handlers) createFolder(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name := stringArg(args, "name")
	if name == "" {
		return mcp.NewToolResultError("Folder name is required."), nil
	}

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("creating folder", err), nil
	}

	res, err := folder.Create(ctx, h.api, token, name, stringArg(args, "parentFolder"))
	if err != nil {
		return h.failure("creating folder", err), nil
	}
	return textResult(res.Message), nil
}

func (h *handlers) moveEmails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	rawIDs := stringArg(args, "emailIds")
	if rawIDs == "" {
		return mcp.NewToolResultError("Email IDs are required. Please provide a comma-separated list of email IDs to move."), nil
	}
	target := stringArg(args, "targetFolder")
	if target == "" {
		return mcp.NewToolResultError("Target folder name is required."), nil
	}
	ids := textutil.SplitList(rawIDs)
	if len(ids) == 0 {
		return mcp.NewToolResultError("No valid email IDs provided."), nil
	}

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("moving emails", err), nil
	}

	if src := stringArg(args, "sourceFolder"); src != "" {
		h.logger.Debug("move requested", "source", src, "target", target, "count", len(ids))
	}
	res, err := folder.Move(ctx, h.api, token, ids, target)
	if err != nil {
		return h.failure("moving emails", err), nil
	}
	return textResult(res.Summary()), nil
}

func (h *handlers) listRules(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("listing rules", err), nil
	}

	list, err := rules.List(ctx, h.api, token)
	if err != nil {
		return h.failure("listing rules", err), nil
	}
	return textResult(rules.FormatList(list, boolArg(args, "includeDetails"))), nil
}

func (h *handlers) createRule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	opts := rules.Options{
		Name:            stringArg(args, "name"),
		FromAddresses:   stringArg(args, "fromAddresses"),
		ContainsSubject: stringArg(args, "containsSubject"),
		HasAttachments:  boolArg(args, "hasAttachments"),
		MoveToFolder:    stringArg(args, "moveToFolder"),
		MarkAsRead:      boolArg(args, "markAsRead"),
		IsEnabled:       optBoolArg(args, "isEnabled"),
	}
	if seq, ok := intArg(args, "sequence"); ok {
		opts.Sequence = &seq
	}
	if err := opts.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("creating rule", err), nil
	}

	res, err := rules.Create(ctx, h.api, token, opts)
	if err != nil {
		return h.failure("creating rule", err), nil
	}
	text := res.Message
	if res.Created && opts.Sequence == nil {
		text += sequenceTip
	}
	return textResult(text), nil
}

func (h *handlers) editRuleSequence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name := stringArg(args, "ruleName")
	seq, _ := intArg(args, "sequence")
	if name == "" {
		return mcp.NewToolResultError(rules.ErrNoRuleName.Error()), nil
	}
	if seq < 1 {
		return mcp.NewToolResultError(rules.ErrNeedSequence.Error()), nil
	}

	token, err := h.auth.AccessToken(ctx)
	if err != nil {
		return h.failure("updating rule sequence", err), nil
	}

	msg, err := rules.EditSequence(ctx, h.api, token, name, seq)
	if err != nil {
		return h.failure("updating rule sequence", err), nil
	}
	return textResult(msg), nil
}
