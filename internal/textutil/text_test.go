package textutil

import (
	"testing"

	"github.com/wesm/outlook-mcp/internal/testutil"
)

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"paragraph", "<p>Hello</p>", "Hello"},
		{"inline_tags", "<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"empty", "", ""},
		{"script_removed", "<script>alert('xss')</script>Text", "Text"},
		{"style_removed", "<style>.class{color:red}</style>Content", "Content"},
		{"head_removed", "<head><title>Title</title></head>Body", "Body"},
		{"crlf_to_lf", "Line1\r\nLine2", "Line1\nLine2"},
		{"collapse_newlines", "Multiple\n\n\n\nNewlines", "Multiple\n\nNewlines"},
		{"entities", "Tom &amp; Jerry &lt;3 &#169;", "Tom & Jerry <3 ©"},
		{"nbsp_spaces", "Hello&nbsp;&nbsp;World", "Hello World"},
		{"br_tag", "Line1<br>Line2", "Line1\nLine2"},
		{"paragraph_breaks", "<p>Para1</p><p>Para2</p>", "Para1\n\nPara2"},
		{"self_closing_br", "Line1<br/>Line2", "Line1\nLine2"},
		{"unclosed_head", "<head><title>T</title><body>Visible", "Visible"},
		{"list_items", "<ul><li>one</li><li>two</li></ul>", "one\n\ntwo"},
		{
			"outlook_body",
			`<html><head><meta charset="utf-8"><style>p{margin:0}</style></head><body>
			<div>Hi team,</div>
			<div>The <b>Q3</b> report is attached.</div>
			</body></html>`,
			"Hi team,\n\nThe Q3 report is attached.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := StripHTML(tc.input)
			if got != tc.want {
				t.Errorf("StripHTML() = %q, want %q", got, tc.want)
			}
			testutil.AssertValidUTF8(t, got)
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "a@example.com", []string{"a@example.com"}},
		{"spaces", " a@example.com ,  b@example.com", []string{"a@example.com", "b@example.com"}},
		{"empty entries dropped", "a,,b,", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.AssertStrings(t, SplitList(tt.input), tt.want...)
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"Quarterly report", 40, "Quarterly report"},
		{"Quarterly", 9, "Quarterly"},
		{"Quarterly report", 10, "Quarter..."},
		{"Quarterly", 2, "Qu"},
		{"Quarterly", 0, ""},
		{"", 4, ""},
		{"Ünïcödé text", 7, "Ünïc..."},
		{"日本語のメール", 3, "日本語"},
	}
	for _, tt := range tests {
		got := TruncateRunes(tt.in, tt.n)
		if got != tt.want {
			t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
		testutil.AssertValidUTF8(t, got)
	}
}

func TestFirstLine(t *testing.T) {
	tests := map[string]string{
		"":                              "",
		"\n":                            "",
		"ErrorItemNotFound":             "ErrorItemNotFound",
		"bad request\ninner details":    "bad request",
		"\r\n\nfirst\r\nsecond":         "first",
		"graph: 400 (BadRequest): nope": "graph: 400 (BadRequest): nope",
	}
	for in, want := range tests {
		if got := FirstLine(in); got != want {
			t.Errorf("FirstLine(%q) = %q, want %q", in, got, want)
		}
	}
}
