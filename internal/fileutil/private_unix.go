//go:build !windows

package fileutil

// restrictToCurrentUser is a no-op on Unix; mode bits already restrict access.
func restrictToCurrentUser(string) error {
	return nil
}
