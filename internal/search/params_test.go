package search

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wesm/outlook-mcp/internal/graph"
	"github.com/wesm/outlook-mcp/internal/mail"
	"github.com/wesm/outlook-mcp/internal/testutil/ptr"
)

func baseParams(top string) graph.Params {
	return graph.Params{
		{Key: "$top", Value: top},
		{Key: "$select", Value: mail.SummaryFields},
		{Key: "$orderby", Value: "receivedDateTime desc"},
	}
}

func TestBuilder_Build(t *testing.T) {
	yes, no := ptr.Bool(true), ptr.Bool(false)

	tests := []struct {
		name    string
		terms   SearchTerms
		filters FilterTerms
		limit   int
		want    graph.Params
	}{
		{
			name:  "NoTerms",
			limit: 10,
			want:  baseParams("10"),
		},
		{
			name:  "AllTermsInFixedOrder",
			terms: SearchTerms{Query: "budget", From: "alice@example.com", To: "bob@example.com", Subject: "Q3"},
			limit: 10,
			want: append(baseParams("10"),
				graph.Param{Key: "$search", Value: `budget subject:"Q3" from:"alice@example.com" to:"bob@example.com"`}),
		},
		{
			name:    "FiltersOnlyTrueCounts",
			filters: FilterTerms{HasAttachments: yes, UnreadOnly: no},
			limit:   5,
			want:    append(baseParams("5"), graph.Param{Key: "$filter", Value: "hasAttachments eq true"}),
		},
		{
			name:    "TermsAndBothFilters",
			terms:   SearchTerms{Subject: "Invoice"},
			filters: FilterTerms{HasAttachments: yes, UnreadOnly: yes},
			limit:   10,
			want: append(baseParams("10"),
				graph.Param{Key: "$search", Value: `subject:"Invoice"`},
				graph.Param{Key: "$filter", Value: "hasAttachments eq true and isRead eq false"}),
		},
		{
			name:  "LimitClampedToMax",
			limit: 500,
			want:  baseParams("50"),
		},
		{
			name:  "LimitClampedToOne",
			limit: 0,
			want:  baseParams("1"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Builder{}.Build(tt.terms, tt.filters, tt.limit)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Build() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuilder_BuildIsDeterministic(t *testing.T) {
	b := Builder{MaxResults: 25}
	terms := SearchTerms{Query: "a b", From: "x@example.com", Subject: `say "hi"`}
	filters := FilterTerms{UnreadOnly: ptr.Bool(true)}

	first := b.Build(terms, filters, 30).Encode()
	second := b.Build(terms, filters, 30).Encode()
	if first != second {
		t.Errorf("Build not deterministic:\n%s\n%s", first, second)
	}
	if v, _ := b.Build(terms, filters, 30).Get("$top"); v != "25" {
		t.Errorf("$top = %q, want 25", v)
	}
}

func TestBuilder_SelectFieldsOverride(t *testing.T) {
	got := Builder{SelectFields: "id,subject"}.Build(SearchTerms{}, FilterTerms{}, 3)
	if v, _ := got.Get("$select"); v != "id,subject" {
		t.Errorf("$select = %q", v)
	}
}

func TestBuilder_SingleTermClauses(t *testing.T) {
	b := Builder{}
	tests := []struct {
		field Field
		value string
		want  string
	}{
		{FieldSubject, "Invoice", `subject:"Invoice"`},
		{FieldFrom, "alice@example.com", `from:"alice@example.com"`},
		{FieldTo, "bob@example.com", `to:"bob@example.com"`},
		{FieldQuery, "quarterly budget", `"quarterly budget"`},
	}
	for _, tt := range tests {
		t.Run(tt.field.String(), func(t *testing.T) {
			got, _ := b.singleTerm(tt.field, tt.value, FilterTerms{}, 10).Get("$search")
			if got != tt.want {
				t.Errorf("$search = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestApplyFilters(t *testing.T) {
	params := baseParams("10")
	orig := params.Clone()
	filters := FilterTerms{HasAttachments: ptr.Bool(true), UnreadOnly: ptr.Bool(true)}

	once := ApplyFilters(params, filters)
	twice := ApplyFilters(once, filters)

	if diff := cmp.Diff(orig, params); diff != "" {
		t.Errorf("ApplyFilters mutated input (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("ApplyFilters not idempotent (-once +twice):\n%s", diff)
	}
	if v, _ := once.Get("$filter"); v != "hasAttachments eq true and isRead eq false" {
		t.Errorf("$filter = %q", v)
	}

	none := ApplyFilters(params, FilterTerms{HasAttachments: ptr.Bool(false)})
	if _, ok := none.Get("$filter"); ok {
		t.Error("false filters should not emit $filter")
	}
}
