// Package textutil provides text manipulation utilities for rendering mail.
package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockTags end a line of text.
var blockTags = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Ul: true, atom.Ol: true, atom.Dl: true, atom.Dt: true, atom.Dd: true,
	atom.Table: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Blockquote: true, atom.Pre: true,
}

// hiddenTags contribute no text.
var hiddenTags = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Title: true,
}

// StripHTML renders an HTML body as plain text. Entities are decoded,
// block elements become line breaks and runs of blank lines collapse to
// one. Preformatted whitespace is not preserved.
func StripHTML(rawHTML string) string {
	z := html.NewTokenizer(strings.NewReader(rawHTML))
	var b strings.Builder
	hidden := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF, or malformed input: keep what was read.
			return normalizeText(b.String())
		case html.TextToken:
			if hidden == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case a == atom.Body:
				// An unclosed <head> must not hide the body.
				hidden = 0
			case hiddenTags[a]:
				if tt == html.StartTagToken {
					hidden++
				} else if tt == html.EndTagToken && hidden > 0 {
					hidden--
				}
			case hidden == 0 && blockTags[a]:
				b.WriteByte('\n')
			}
		}
	}
}

// normalizeText collapses horizontal whitespace within lines and keeps at
// most one blank line between paragraphs.
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	out := lines[:0]
	blank := 0
	for _, line := range lines {
		// strings.Fields treats U+00A0 (&nbsp;) as space.
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// SplitList splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TruncateRunes shortens s to at most n runes without splitting a
// character. A cut string ends in "..." when n leaves room for it.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	keep, suffix := n, ""
	if n > 3 {
		keep, suffix = n-3, "..."
	}
	end := 0
	for range keep {
		_, size := utf8.DecodeRuneInString(s[end:])
		end += size
	}
	return s[:end] + suffix
}

// FirstLine returns the first line of s after any leading line breaks,
// without a trailing carriage return.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimLeft(s, "\r\n"), "\n")
	return strings.TrimSuffix(line, "\r")
}
