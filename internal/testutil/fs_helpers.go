package testutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// WriteFile creates dir/name, and any missing parents, holding content.
// name must be local to dir. It returns the full path.
func WriteFile(t testing.TB, dir, name, content string, perm os.FileMode) string {
	t.Helper()
	if !filepath.IsLocal(name) {
		t.Fatalf("WriteFile: %q is not local to %s", name, dir)
	}
	path := filepath.Join(dir, name)
	MustNoErr(t, os.MkdirAll(filepath.Dir(path), 0o700), "create parent dir")
	MustNoErr(t, os.WriteFile(path, []byte(content), perm), "write "+name)
	return path
}

// AssertPerm checks the permission bits of path. Windows has no POSIX
// bits, so only existence is checked there.
func AssertPerm(t testing.TB, path string, want os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	MustNoErr(t, err, "stat "+path)
	if runtime.GOOS == "windows" {
		return
	}
	if got := info.Mode().Perm(); got != want {
		t.Errorf("%s mode = %#o, want %#o", path, got, want)
	}
}

// MustNotExist fails unless path is absent.
func MustNotExist(t testing.TB, path string) {
	t.Helper()
	_, err := os.Stat(path)
	switch {
	case err == nil:
		t.Fatalf("%s exists, want it removed", path)
	case !errors.Is(err, fs.ErrNotExist):
		t.Fatalf("stat %s: %v", path, err)
	}
}
