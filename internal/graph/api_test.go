package graph

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParamsEncode(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{
			name:   "Empty",
			params: nil,
			want:   "",
		},
		{
			name: "SystemQueryOptionsKeepOrder",
			params: Params{
				{Key: "$top", Value: "10"},
				{Key: "$select", Value: "id,subject"},
				{Key: "$orderby", Value: "receivedDateTime desc"},
			},
			want: "$top=10&$select=id%2Csubject&$orderby=receivedDateTime%20desc",
		},
		{
			name:   "SearchPhraseEscaped",
			params: Params{{Key: "$search", Value: `subject:"a&b=c"`}},
			want:   "$search=subject%3A%22a%26b%3Dc%22",
		},
		{
			name:   "PlainKey",
			params: Params{{Key: "api version", Value: "1"}},
			want:   "api+version=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.Encode(); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParamsWithDoesNotMutate(t *testing.T) {
	base := Params{{Key: "$top", Value: "10"}, {Key: "$filter", Value: "isRead eq false"}}
	orig := base.Clone()

	replaced := base.With("$filter", "hasAttachments eq true")
	appended := base.With("$search", "invoice")

	if diff := cmp.Diff(orig, base); diff != "" {
		t.Errorf("With mutated receiver (-want +got):\n%s", diff)
	}
	want := Params{{Key: "$top", Value: "10"}, {Key: "$filter", Value: "hasAttachments eq true"}}
	if diff := cmp.Diff(want, replaced); diff != "" {
		t.Errorf("replace mismatch (-want +got):\n%s", diff)
	}
	if len(appended) != 3 || appended[2].Key != "$search" {
		t.Errorf("append = %v, want $search last", appended)
	}
}

func TestParamsGetWithout(t *testing.T) {
	p := Params{{Key: "$top", Value: "5"}, {Key: "$search", Value: "x"}}

	if v, ok := p.Get("$top"); !ok || v != "5" {
		t.Errorf("Get($top) = %q, %v", v, ok)
	}
	if _, ok := p.Get("$filter"); ok {
		t.Error("Get($filter) should be absent")
	}

	without := p.Without("$search")
	if _, ok := without.Get("$search"); ok {
		t.Error("Without($search) still has $search")
	}
	if len(p) != 2 {
		t.Errorf("Without mutated receiver: %v", p)
	}
}
