package search

import (
	"strconv"
	"strings"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
)

// DefaultMaxResults caps $top when Builder.MaxResults is unset.
const DefaultMaxResults = 50

// Builder turns search and filter terms into Graph query parameters.
type Builder struct {
	MaxResults   int    // upper bound for $top
	SelectFields string // $select; defaults to mail.SummaryFields
}

// base returns $top, $select and $orderby, the parameters every attempt carries.
func (b Builder) base(limit int) graph.Params {
	maxResults := b.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if limit > maxResults {
		limit = maxResults
	}
	if limit < 1 {
		limit = 1
	}
	fields := b.SelectFields
	if fields == "" {
		fields = mail.SummaryFields
	}
	return graph.Params{
		{Key: "$top", Value: strconv.Itoa(limit)},
		{Key: "$select", Value: fields},
		{Key: "$orderby", Value: "receivedDateTime desc"},
	}
}

// Build returns the combined parameter set: every present term in one
// $search expression (query, subject, from, to) plus the boolean filters.
func (b Builder) Build(terms SearchTerms, filters FilterTerms, limit int) graph.Params {
	params := b.base(limit)

	var clauses []string
	if terms.Query != "" {
		clauses = append(clauses, terms.Query)
	}
	for _, f := range [...]Field{FieldSubject, FieldFrom, FieldTo} {
		if v := f.value(terms); v != "" {
			clauses = append(clauses, f.clause(v))
		}
	}
	if len(clauses) > 0 {
		params = params.With("$search", strings.Join(clauses, " "))
	}

	return ApplyFilters(params, filters)
}

// singleTerm returns parameters searching only field f, plus the boolean filters.
func (b Builder) singleTerm(f Field, value string, filters FilterTerms, limit int) graph.Params {
	params := b.base(limit).With("$search", f.clause(value))
	return ApplyFilters(params, filters)
}

// filtersOnly returns parameters carrying only the boolean filters.
func (b Builder) filtersOnly(filters FilterTerms, limit int) graph.Params {
	return ApplyFilters(b.base(limit), filters)
}

// recent returns the unconstrained parameters.
func (b Builder) recent(limit int) graph.Params {
	return b.base(limit)
}

// ApplyFilters returns a copy of params with a $filter built from filters.
// An existing $filter is replaced; params is never modified.
func ApplyFilters(params graph.Params, filters FilterTerms) graph.Params {
	var clauses []string
	if isTrue(filters.HasAttachments) {
		clauses = append(clauses, "hasAttachments eq true")
	}
	if isTrue(filters.UnreadOnly) {
		clauses = append(clauses, "isRead eq false")
	}
	if len(clauses) == 0 {
		return params.Clone()
	}
	return params.With("$filter", strings.Join(clauses, " and "))
}
