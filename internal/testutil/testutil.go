// Package testutil provides test helpers for outlook-mcp tests.
//
// The package is organized into focused files:
//   - assert.go: assertion helpers (MustNoErr, AssertStrings, etc.)
//   - builders.go: Graph message and collection builders for graph.MockAPI
//   - fs_helpers.go: file writing and permission checks
//   - ptr/: pointer helpers for optional fields
package testutil
