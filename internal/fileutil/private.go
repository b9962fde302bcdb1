// Package fileutil writes files and directories that only the current user
// can access. On Windows, where Unix mode bits are not enforced, a DACL
// granting access to the current user alone is applied as well.
package fileutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Modes used for private files and directories.
const (
	PrivateFileMode os.FileMode = 0600
	PrivateDirMode  os.FileMode = 0700
)

// MkdirPrivate creates path and any missing parents as owner-only
// directories. Directories that already exist are left untouched.
func MkdirPrivate(path string) error {
	created := missingDirs(path)
	if err := os.MkdirAll(path, PrivateDirMode); err != nil {
		return err
	}
	for _, dir := range created {
		restrictBestEffort(dir)
	}
	return nil
}

// WritePrivate atomically replaces path with data. The file is written to a
// temporary sibling, restricted to the current user, then renamed into place.
func WritePrivate(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := MkdirPrivate(dir); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := tmp.Chmod(PrivateFileMode); err != nil {
		return fail(err)
	}
	if _, err := tmp.Write(data); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	restrictBestEffort(tmpPath)

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// missingDirs returns path and each ancestor that does not exist yet,
// leaf first.
func missingDirs(path string) []string {
	var dirs []string
	p := filepath.Clean(path)
	for p != "" && p != "." && p != string(filepath.Separator) {
		if _, err := os.Stat(p); err == nil {
			break
		}
		dirs = append(dirs, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	return dirs
}

// restrictBestEffort applies the platform restriction. Failures are logged:
// the file already carries owner-only mode bits.
func restrictBestEffort(path string) {
	if err := restrictToCurrentUser(path); err != nil {
		slog.Warn("fileutil: best-effort DACL failed", "path", path, "err", err)
	}
}
