package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/outlook-mcp/internal/testutil/ptr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Query
	}{
		// Basic Operators
		{
			name:  "from operator",
			query: "from:alice@example.com",
			want:  Query{FromAddrs: []string{"alice@example.com"}},
		},
		{
			name:  "from is lowercased",
			query: "from:Alice@Example.com",
			want:  Query{FromAddrs: []string{"alice@example.com"}},
		},
		{
			name:  "to operator",
			query: "to:bob@example.com",
			want:  Query{ToAddrs: []string{"bob@example.com"}},
		},
		{
			name:  "bare text",
			query: "hello world",
			want:  Query{TextTerms: []string{"hello", "world"}},
		},
		{
			name:  "quoted phrase",
			query: `"hello world"`,
			want:  Query{TextTerms: []string{"hello world"}},
		},
		{
			name:  "mixed operators and text",
			query: "from:alice@example.com meeting notes",
			want: Query{
				FromAddrs: []string{"alice@example.com"},
				TextTerms: []string{"meeting", "notes"},
			},
		},

		// Quoted Operator Values
		{
			name:  "subject with quoted phrase",
			query: `subject:"meeting notes"`,
			want:  Query{SubjectTerms: []string{"meeting notes"}},
		},
		{
			name:  "mixed quoted and unquoted",
			query: `subject:urgent subject:"very important" search term`,
			want: Query{
				SubjectTerms: []string{"urgent", "very important"},
				TextTerms:    []string{"search", "term"},
			},
		},

		// Quoted Phrases With Colons
		{
			name:  "quoted phrase with time",
			query: `"meeting at 10:30"`,
			want:  Query{TextTerms: []string{"meeting at 10:30"}},
		},
		{
			name:  "quoted colon phrase mixed with real operator",
			query: `from:alice@example.com "subject:not an operator"`,
			want: Query{
				FromAddrs: []string{"alice@example.com"},
				TextTerms: []string{"subject:not an operator"},
			},
		},

		// Boolean filters
		{
			name:  "has attachment",
			query: "has:attachment",
			want:  Query{HasAttachments: ptr.Bool(true)},
		},
		{
			name:  "is unread",
			query: "is:UNREAD",
			want:  Query{UnreadOnly: ptr.Bool(true)},
		},
		{
			name:  "unsupported is value ignored",
			query: "is:starred",
			want:  Query{},
		},

		// Unknown operators stay as text
		{
			name:  "unknown operator",
			query: "label:work",
			want:  Query{TextTerms: []string{"label:work"}},
		},

		// Lexing edge cases
		{
			name:  "apostrophe inside word",
			query: "don't panic",
			want:  Query{TextTerms: []string{"don't", "panic"}},
		},
		{
			name:  "single quoted phrase",
			query: "'weekly sync'",
			want:  Query{TextTerms: []string{"weekly sync"}},
		},
		{
			name:  "unterminated quote runs to end",
			query: `subject:"open ended`,
			want:  Query{SubjectTerms: []string{"open ended"}},
		},
		{
			name:  "empty operator value ignored",
			query: "from: hello",
			want:  Query{TextTerms: []string{"hello"}},
		},
		{
			name:  "unknown operator with quoted value kept verbatim",
			query: `label:"a b" x`,
			want:  Query{TextTerms: []string{`label:"a b"`, "x"}},
		},
		{
			name:  "empty quotes dropped",
			query: `"" hello`,
			want:  Query{TextTerms: []string{"hello"}},
		},

		// Complex Query
		{
			name:  "complex query",
			query: `from:alice@example.com to:bob@example.com subject:meeting has:attachment is:unread "project report"`,
			want: Query{
				FromAddrs:      []string{"alice@example.com"},
				ToAddrs:        []string{"bob@example.com"},
				SubjectTerms:   []string{"meeting"},
				TextTerms:      []string{"project report"},
				HasAttachments: ptr.Bool(true),
				UnreadOnly:     ptr.Bool(true),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.query)
			assertQueryEqual(t, *got, tt.want)
		})
	}
}

func TestQuery_IsEmpty(t *testing.T) {
	tests := []struct {
		query   string
		isEmpty bool
	}{
		{"", true},
		{"from:alice@example.com", false},
		{"hello", false},
		{"has:attachment", false},
		{"is:unread", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q := Parse(tt.query)
			if q.IsEmpty() != tt.isEmpty {
				t.Errorf("IsEmpty(%q): got %v, want %v", tt.query, q.IsEmpty(), tt.isEmpty)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	terms, filters := ParseQuery(`invoice march subject:"Q1 billing" from:acme@example.com has:attachment`)

	want := SearchTerms{
		Query:   "invoice march",
		Subject: "Q1 billing",
		From:    "acme@example.com",
	}
	if diff := cmp.Diff(want, terms); diff != "" {
		t.Errorf("SearchTerms mismatch (-want +got):\n%s", diff)
	}
	if !isTrue(filters.HasAttachments) {
		t.Error("HasAttachments should be true")
	}
	if filters.UnreadOnly != nil {
		t.Errorf("UnreadOnly = %v, want nil", *filters.UnreadOnly)
	}
}
