// Package fsutil provides the small filesystem abstraction the cache
// package is built against, so its directory-scanning and cleanup logic
// can be exercised with injected failures (see [Fake]).
package fsutil

import "os"

// FS defines the filesystem operations the cache protocol needs.
//
// [Real] is the production implementation, wrapping the [os] package
// directly. [Fake] substitutes for it in tests, injecting failures on a
// chosen path to exercise error paths (a stale .temp directory that
// refuses to remove, a rename that fails midway) that are awkward to
// provoke on a real filesystem.
type FS interface {
	// Stat returns file info, or an error satisfying [os.IsNotExist] if
	// path does not exist.
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether path exists. Returns (false, nil) if not
	// found, (false, err) for any other stat error.
	Exists(path string) (bool, error)

	// ReadDir reads a directory, entries sorted by name. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error

	// RemoveAll deletes path and any children. See [os.RemoveAll].
	RemoveAll(path string) error

	// Rename moves oldpath to newpath, atomic on the same filesystem.
	// See [os.Rename].
	Rename(oldpath, newpath string) error

	// Touch advances path's mtime to now, the same way [os.Chtimes] would.
	// Used to record cache-entry access recency for external LRU purgers.
	Touch(path string) error
}
