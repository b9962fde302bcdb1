package testutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// AssertStrings fails with a diff unless got equals want. A nil and an
// empty slice compare equal.
func AssertStrings(t testing.TB, got []string, want ...string) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("strings mismatch (-want +got):\n%s", diff)
	}
}

// AssertValidUTF8 fails if s contains invalid UTF-8.
func AssertValidUTF8(t testing.TB, s string) {
	t.Helper()
	if !utf8.ValidString(s) {
		t.Errorf("invalid UTF-8: %q", s)
	}
}

// AssertContainsAll reports every entry of subs missing from got in one
// failure.
func AssertContainsAll(t testing.TB, got string, subs []string) {
	t.Helper()
	var missing []string
	for _, s := range subs {
		if !strings.Contains(got, s) {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		t.Errorf("text is missing %q\ntext:\n%s", missing, got)
	}
}

// MustNoErr stops the test when a setup step fails.
func MustNoErr(t testing.TB, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: %v", msg, err)
	}
}
