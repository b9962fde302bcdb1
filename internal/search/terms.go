package search

import "fmt"

// SearchTerms holds the free-text and per-field constraints of a search.
// An empty string leaves that field unconstrained.
type SearchTerms struct {
	Query   string
	From    string
	To      string
	Subject string
}

// IsEmpty reports whether no term is set.
func (t SearchTerms) IsEmpty() bool {
	return t.Query == "" && t.From == "" && t.To == "" && t.Subject == ""
}

// FilterTerms holds the boolean filters of a search. Only a pointer to
// true constrains; nil and false are equivalent.
type FilterTerms struct {
	HasAttachments *bool
	UnreadOnly     *bool
}

// Any reports whether at least one filter is true.
func (f FilterTerms) Any() bool {
	return isTrue(f.HasAttachments) || isTrue(f.UnreadOnly)
}

func isTrue(b *bool) bool {
	return b != nil && *b
}

// Field identifies a single searchable term.
type Field int

const (
	FieldSubject Field = iota
	FieldFrom
	FieldTo
	FieldQuery
)

// singleTermOrder is the order fields are tried one at a time, most
// discriminating first.
var singleTermOrder = [...]Field{FieldSubject, FieldFrom, FieldTo, FieldQuery}

func (f Field) String() string {
	switch f {
	case FieldSubject:
		return "subject"
	case FieldFrom:
		return "from"
	case FieldTo:
		return "to"
	case FieldQuery:
		return "query"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// value returns the term for f.
func (f Field) value(t SearchTerms) string {
	switch f {
	case FieldSubject:
		return t.Subject
	case FieldFrom:
		return t.From
	case FieldTo:
		return t.To
	case FieldQuery:
		return t.Query
	default:
		return ""
	}
}

// clause renders f as a standalone KQL clause: field:"value", or the
// quoted phrase for free text.
func (f Field) clause(value string) string {
	if f == FieldQuery {
		return `"` + value + `"`
	}
	return f.String() + `:"` + value + `"`
}
