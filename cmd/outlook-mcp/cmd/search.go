package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesm/outlook-mcp/internal/mail"
	"github.com/wesm/outlook-mcp/internal/search"
)

var (
	searchFolder string
	searchLimit  int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the mailbox using Gmail-like query syntax",
	Long: `Search the mailbox with the same progressive strategy the
search-emails tool uses: the combined query first, then each term alone,
then the boolean filters, then the most recent messages.

Supported operators:
  from:        Sender address or name
  to:          Recipient address or name
  subject:     Subject text
  has:         has:attachment - messages with attachments
  is:          is:unread - unread messages

Bare words and "quoted phrases" perform full-text search.

Examples:
  outlook-mcp search from:alice@example.com has:attachment
  outlook-mcp search subject:invoice is:unread
  outlook-mcp search '"quarterly report"' --folder Archive`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		q := search.Parse(strings.Join(args, " "))
		if q.IsEmpty() {
			return fmt.Errorf("empty search query")
		}
		terms, filters := q.Terms()

		auth, err := newAuthManager()
		if err != nil {
			return fmt.Errorf("open token store: %w", err)
		}
		token, err := auth.AccessToken(cmd.Context())
		if err != nil {
			return fmt.Errorf("%w (run 'outlook-mcp auth' first)", err)
		}

		limit := searchLimit
		if limit < 1 || limit > cfg.Graph.MaxResultCount {
			limit = cfg.Graph.MaxResultCount
		}

		api := newGraphAPI()
		resolver := search.NewResolver(api,
			search.WithBuilder(search.Builder{MaxResults: cfg.Graph.MaxResultCount}),
			search.WithLogger(logger),
		)

		endpoint := mail.ResolveFolderPath(cmd.Context(), api, token, searchFolder)
		res, err := resolver.Search(cmd.Context(), endpoint, token, terms, filters, limit)
		if err != nil {
			return fmt.Errorf("search: %w", err)
		}
		logger.Debug("search finished", "trace", res.Trace.String())

		if searchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Strategies []string              `json:"strategies"`
				Messages   []mail.MessageSummary `json:"messages"`
			}{res.Trace.Strategies(), res.Messages})
		}
		fmt.Println(search.Format(res))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchFolder, "folder", "inbox", "folder to search")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
}
