// Package mcp exposes the Outlook tools over the Model Context Protocol.
package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/oauth2"

	"github.com/wesm/outlook-mcp/internal/folder"
	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/oauth"
	"github.com/wesm/outlook-mcp/internal/search"
)

// Server identity reported to MCP clients.
const (
	ServerName    = "outlook-mcp"
	ServerVersion = "1.0.0"
)

// Tool name constants.
const (
	ToolAbout            = "about"
	ToolAuthenticate     = "authenticate"
	ToolCheckAuthStatus  = "check-auth-status"
	ToolListEmails       = "list-emails"
	ToolSearchEmails     = "search-emails"
	ToolReadEmail        = "read-email"
	ToolSendEmail        = "send-email"
	ToolListFolders      = "list-folders"
	ToolCreateFolder     = "create-folder"
	ToolMoveEmails       = "move-emails"
	ToolListRules        = "list-rules"
	ToolCreateRule       = "create-rule"
	ToolEditRuleSequence = "edit-rule-sequence"
)

// Authenticator supplies Graph tokens. *oauth.Manager implements it.
type Authenticator interface {
	AccessToken(ctx context.Context) (string, error)
	CreateTestToken() (*oauth2.Token, error)
	Status() oauth.Status
	ClientID() string
	Invalidate()
}

// Options configures the tool handlers.
type Options struct {
	API           graph.API
	Auth          Authenticator
	TestMode      bool
	AuthServerURL string
	MaxResults    int // upper bound for count; search.DefaultMaxResults when zero
	Logger        *slog.Logger
}

// NewServer creates an MCP server with the Outlook tools registered.
func NewServer(opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	h := newHandlers(opts)

	s.AddTool(aboutTool(), h.about)
	s.AddTool(authenticateTool(), h.authenticate)
	s.AddTool(checkAuthStatusTool(), h.checkAuthStatus)
	s.AddTool(listEmailsTool(), h.listEmails)
	s.AddTool(searchEmailsTool(), h.searchEmails)
	s.AddTool(readEmailTool(), h.readEmail)
	s.AddTool(sendEmailTool(), h.sendEmail)
	s.AddTool(listFoldersTool(), h.listFolders)
	s.AddTool(createFolderTool(), h.createFolder)
	s.AddTool(moveEmailsTool(), h.moveEmails)
	s.AddTool(listRulesTool(), h.listRules)
	s.AddTool(createRuleTool(), h.createRule)
	s.AddTool(editRuleSequenceTool(), h.editRuleSequence)

	return s
}

// Serve creates the MCP server and serves over stdio.
// It blocks until stdin is closed or the context is cancelled.
func Serve(ctx context.Context, opts Options) error {
	stdio := server.NewStdioServer(NewServer(opts))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func newHandlers(opts Options) *handlers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = search.DefaultMaxResults
	}
	return &handlers{
		api:           opts.API,
		auth:          opts.Auth,
		testMode:      opts.TestMode,
		authServerURL: opts.AuthServerURL,
		maxResults:    maxResults,
		logger:        logger,
		resolver: search.NewResolver(opts.API,
			search.WithBuilder(search.Builder{MaxResults: maxResults}),
			search.WithLogger(logger),
		),
		folders: &folder.Lister{API: opts.API, Logger: logger},
	}
}

// Common argument helpers for recurring tool option definitions.

func withCount() mcp.ToolOption {
	return mcp.WithNumber("count",
		mcp.Description("Number of emails to retrieve (default: 10, max: 50)"),
	)
}

func withFolder(desc string) mcp.ToolOption {
	return mcp.WithString("folder",
		mcp.Description(desc),
	)
}

func aboutTool() mcp.Tool {
	return mcp.NewTool(ToolAbout,
		mcp.WithDescription("Returns information about this Outlook Assistant server"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func authenticateTool() mcp.Tool {
	return mcp.NewTool(ToolAuthenticate,
		mcp.WithDescription("Authenticate with Microsoft Graph API to access Outlook data"),
		mcp.WithBoolean("force",
			mcp.Description("Force re-authentication even if already authenticated"),
		),
	)
}

func checkAuthStatusTool() mcp.Tool {
	return mcp.NewTool(ToolCheckAuthStatus,
		mcp.WithDescription("Check the current authentication status with Microsoft Graph API"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
}

func listEmailsTool() mcp.Tool {
	return mcp.NewTool(ToolListEmails,
		mcp.WithDescription("Lists recent emails from your inbox"),
		mcp.WithReadOnlyHintAnnotation(true),
		withFolder("Email folder to list (e.g., 'inbox', 'sent', 'drafts', default: 'inbox')"),
		withCount(),
	)
}

func searchEmailsTool() mcp.Tool {
	return mcp.NewTool(ToolSearchEmails,
		mcp.WithDescription("Search for emails using various criteria"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("query",
			mcp.Description("Search query text to find in emails"),
		),
		withFolder("Email folder to search in (default: 'inbox')"),
		mcp.WithString("from",
			mcp.Description("Filter by sender email address or name"),
		),
		mcp.WithString("to",
			mcp.Description("Filter by recipient email address or name"),
		),
		mcp.WithString("subject",
			mcp.Description("Filter by email subject"),
		),
		mcp.WithBoolean("hasAttachments",
			mcp.Description("Filter to only emails with attachments"),
		),
		mcp.WithBoolean("unreadOnly",
			mcp.Description("Filter to only unread emails"),
		),
		withCount(),
	)
}

func readEmailTool() mcp.Tool {
	return mcp.NewTool(ToolReadEmail,
		mcp.WithDescription("Reads the content of a specific email"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("ID of the email to read"),
		),
	)
}

func sendEmailTool() mcp.Tool {
	return mcp.NewTool(ToolSendEmail,
		mcp.WithDescription("Composes and sends a new email"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Comma-separated list of recipient email addresses"),
		),
		mcp.WithString("cc",
			mcp.Description("Comma-separated list of CC recipient email addresses"),
		),
		mcp.WithString("bcc",
			mcp.Description("Comma-separated list of BCC recipient email addresses"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Email subject"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Email body content (can be plain text or HTML)"),
		),
		mcp.WithString("importance",
			mcp.Description("Email importance (normal, high, low)"),
			mcp.Enum("normal", "high", "low"),
		),
		mcp.WithBoolean("saveToSentItems",
			mcp.Description("Whether to save the email to sent items"),
		),
	)
}

func listFoldersTool() mcp.Tool {
	return mcp.NewTool(ToolListFolders,
		mcp.WithDescription("Lists mail folders in your Outlook account"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("includeItemCounts",
			mcp.Description("Include counts of total and unread items"),
		),
		mcp.WithBoolean("includeChildren",
			mcp.Description("Include child folders in hierarchy"),
		),
	)
}

func createFolderTool() mcp.Tool {
	return mcp.NewTool(ToolCreateFolder,
		mcp.WithDescription("Creates a new mail folder"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the folder to create"),
		),
		mcp.WithString("parentFolder",
			mcp.Description("Optional parent folder name (default is root)"),
		),
	)
}

func moveEmailsTool() mcp.Tool {
	return mcp.NewTool(ToolMoveEmails,
		mcp.WithDescription("Moves emails from one folder to another"),
		mcp.WithString("emailIds",
			mcp.Required(),
			mcp.Description("Comma-separated list of email IDs to move"),
		),
		mcp.WithString("targetFolder",
			mcp.Required(),
			mcp.Description("Name of the folder to move emails to"),
		),
		mcp.WithString("sourceFolder",
			mcp.Description("Optional name of the source folder (default is inbox)"),
		),
	)
}

func listRulesTool() mcp.Tool {
	return mcp.NewTool(ToolListRules,
		mcp.WithDescription("Lists inbox rules in your Outlook account"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithBoolean("includeDetails",
			mcp.Description("Include detailed rule conditions and actions"),
		),
	)
}

func createRuleTool() mcp.Tool {
	return mcp.NewTool(ToolCreateRule,
		mcp.WithDescription("Creates a new inbox rule"),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Name of the rule to create"),
		),
		mcp.WithString("fromAddresses",
			mcp.Description("Comma-separated list of sender email addresses for the rule"),
		),
		mcp.WithString("containsSubject",
			mcp.Description("Subject text the email must contain"),
		),
		mcp.WithBoolean("hasAttachments",
			mcp.Description("Whether the rule applies to emails with attachments"),
		),
		mcp.WithString("moveToFolder",
			mcp.Description("Name of the folder to move matching emails to"),
		),
		mcp.WithBoolean("markAsRead",
			mcp.Description("Whether to mark matching emails as read"),
		),
		mcp.WithBoolean("isEnabled",
			mcp.Description("Whether the rule should be enabled after creation (default: true)"),
		),
		mcp.WithNumber("sequence",
			mcp.Description("Order in which the rule is executed (lower numbers run first, default: 100)"),
		),
	)
}

func editRuleSequenceTool() mcp.Tool {
	return mcp.NewTool(ToolEditRuleSequence,
		mcp.WithDescription("Changes the execution order of an existing inbox rule"),
		mcp.WithString("ruleName",
			mcp.Required(),
			mcp.Description("Name of the rule to modify"),
		),
		mcp.WithNumber("sequence",
			mcp.Required(),
			mcp.Description("New sequence value for the rule (lower numbers run first)"),
		),
	)
}
