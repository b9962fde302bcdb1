// Package search resolves loosely specified mail searches into Microsoft
// Graph queries, falling back to progressively simpler strategies until one
// returns messages.
package search

import (
	"strings"
	"unicode"
)

// Query represents a parsed command-line search query.
type Query struct {
	TextTerms      []string // Full-text search terms
	FromAddrs      []string // from: filters
	ToAddrs        []string // to: filters
	SubjectTerms   []string // subject: filters
	HasAttachments *bool    // has:attachment
	UnreadOnly     *bool    // is:unread
}

// IsEmpty returns true if the query has no search criteria.
func (q *Query) IsEmpty() bool {
	return len(q.TextTerms) == 0 &&
		len(q.FromAddrs) == 0 &&
		len(q.ToAddrs) == 0 &&
		len(q.SubjectTerms) == 0 &&
		q.HasAttachments == nil &&
		q.UnreadOnly == nil
}

// Terms converts the query to resolver input. Repeated operators are
// space-joined into a single term.
func (q *Query) Terms() (SearchTerms, FilterTerms) {
	terms := SearchTerms{
		Query:   strings.Join(q.TextTerms, " "),
		From:    strings.Join(q.FromAddrs, " "),
		To:      strings.Join(q.ToAddrs, " "),
		Subject: strings.Join(q.SubjectTerms, " "),
	}
	return terms, FilterTerms{HasAttachments: q.HasAttachments, UnreadOnly: q.UnreadOnly}
}

type operatorFn func(q *Query, value string)

var operators = map[string]operatorFn{
	"from": func(q *Query, v string) {
		q.FromAddrs = append(q.FromAddrs, strings.ToLower(v))
	},
	"to": func(q *Query, v string) {
		q.ToAddrs = append(q.ToAddrs, strings.ToLower(v))
	},
	"subject": func(q *Query, v string) {
		q.SubjectTerms = append(q.SubjectTerms, v)
	},
	"has": func(q *Query, v string) {
		switch strings.ToLower(v) {
		case "attachment", "attachments":
			q.HasAttachments = ptrTrue()
		}
	},
	"is": func(q *Query, v string) {
		if strings.EqualFold(v, "unread") {
			q.UnreadOnly = ptrTrue()
		}
	},
}

func ptrTrue() *bool {
	b := true
	return &b
}

// Parse parses a Gmail-style query for the search command.
//
//	from:addr to:addr subject:text subject:"a phrase"
//	has:attachment is:unread
//	bare words "quoted phrases"
//
// Unknown operators are kept verbatim as text terms; known operators
// with an empty value are ignored.
func Parse(queryStr string) *Query {
	q := &Query{}
	for _, tok := range lex(queryStr) {
		if tok.op == "" {
			q.TextTerms = append(q.TextTerms, tok.value)
			continue
		}
		apply, ok := operators[tok.op]
		if !ok {
			q.TextTerms = append(q.TextTerms, tok.raw)
			continue
		}
		if tok.value != "" {
			apply(q, tok.value)
		}
	}
	return q
}

// ParseQuery parses queryStr straight into resolver input.
func ParseQuery(queryStr string) (SearchTerms, FilterTerms) {
	return Parse(queryStr).Terms()
}

// token is one element of a query. op is the lowercased operator name, or
// empty for free text; raw is the text as written.
type token struct {
	op    string
	value string
	raw   string
}

func isQuote(r rune) bool { return r == '"' || r == '\'' }

// readPhrase reads a phrase opened by the quote at rs[i]. An unterminated
// phrase runs to the end of input. It returns the phrase and the index
// after it.
func readPhrase(rs []rune, i int) (string, int) {
	for j := i + 1; j < len(rs); j++ {
		if rs[j] == rs[i] {
			return string(rs[i+1 : j]), j + 1
		}
	}
	return string(rs[i+1:]), len(rs)
}

// lex splits a query on whitespace outside quotes. A quote at the start of
// a word opens a phrase; a quote right after "op:" binds the phrase to the
// operator. Quotes inside a word (don't) are literal.
func lex(queryStr string) []token {
	var toks []token
	rs := []rune(queryStr)
	for i := 0; i < len(rs); {
		switch {
		case unicode.IsSpace(rs[i]):
			i++
		case isQuote(rs[i]):
			phrase, next := readPhrase(rs, i)
			if phrase != "" {
				toks = append(toks, token{value: phrase, raw: string(rs[i:next])})
			}
			i = next
		default:
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) {
				if isQuote(rs[i]) && i > start && rs[i-1] == ':' {
					break
				}
				i++
			}
			word := string(rs[start:i])
			if i < len(rs) && isQuote(rs[i]) {
				phrase, next := readPhrase(rs, i)
				toks = append(toks, token{
					op:    strings.ToLower(strings.TrimSuffix(word, ":")),
					value: phrase,
					raw:   string(rs[start:next]),
				})
				i = next
				continue
			}
			toks = append(toks, wordToken(word))
		}
	}
	return toks
}

func wordToken(word string) token {
	if idx := strings.IndexByte(word, ':'); idx > 0 {
		return token{op: strings.ToLower(word[:idx]), value: word[idx+1:], raw: word}
	}
	return token{value: word, raw: word}
}
