// Package cache implements a multi-process-safe on-disk get-or-create
// cache, layered on the [github.com/brindlewood/fslock/lock] primitive.
//
// For a key K under a cache directory D, three sibling paths exist:
//
//	D/K.lock  - mediates access; exists whenever K exists or is being built
//	D/K.cache - the materialized entry (file or directory); opaque contents
//	D/K.temp  - staging path used by the build step before atomic rename
//
// [Dir.GetOrCreate] serializes creation of a missing entry behind an
// exclusive lock and lets any number of readers observe a finished entry
// concurrently behind shared locks; [Dir.Clear] purges entries without
// racing either.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/brindlewood/fslock/internal/fsutil"
	"github.com/brindlewood/fslock/lock"
)

const (
	lockSuffix  = ".lock"
	cacheSuffix = ".cache"
	tempSuffix  = ".temp"

	// dirPerm is used when lazily creating the cache directory itself (not
	// the per-entry staging directories a build function may create under
	// tempPath, whose permissions are build's own business).
	dirPerm = 0o755
)

// Dir is a cache directory: the namespace for a set of keyed entries.
// A Dir holds no in-memory state beyond its root path; all state lives in
// files, so multiple Dir values (in this process or another) over the
// same root path are always consistent with each other.
type Dir struct {
	root string
	fs   fsutil.FS
	log  *zerolog.Logger
}

// Option configures a [Dir] constructed with [NewDir].
type Option func(*Dir)

// WithLogger attaches a logger for lifecycle events: entry created/removed
// at Info, skipped-during-clear at Warn, lock release failures at Error.
func WithLogger(log *zerolog.Logger) Option {
	return func(d *Dir) { d.log = log }
}

// WithFS overrides the filesystem implementation, for tests.
func WithFS(fs fsutil.FS) Option {
	return func(d *Dir) { d.fs = fs }
}

// NewDir returns a [Dir] rooted at root. root need not exist yet - it (and
// any cache subdirectory) is created lazily by the first exclusive
// acquisition beneath it.
func NewDir(root string, opts ...Option) *Dir {
	nop := zerolog.Nop()
	d := &Dir{
		root: root,
		fs:   fsutil.NewReal(),
		log:  &nop,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Root returns the cache directory's root path.
func (d *Dir) Root() string { return d.root }

// Entry is a materialized cache entry, held open under a shared lock.
// Call [Entry.Release] when done observing it - while the shared lock is
// held, the entry will not be removed or replaced by a concurrent
// [Dir.Clear] or creator.
type Entry struct {
	path string
	h    *lock.Handle
}

// Path is the entry's materialized path (a file or a directory; contents
// are opaque to this package).
func (e *Entry) Path() string { return e.path }

// Release releases the shared lock backing this entry. It must be called
// exactly once.
func (e *Entry) Release() error { return e.h.Release() }

// GetOrCreate returns the entry for key, building it via build if it does
// not already exist.
//
// build receives a staging path and must fully populate it (as a file or
// a directory); on success the staging path is atomically renamed to the
// entry's published path, so no observer ever sees a partially built
// entry. At most one build invocation for a given key runs at a time,
// across all processes sharing this cache directory.
//
// The returned [Entry] is held under a shared lock; call [Entry.Release]
// when done with it.
func (d *Dir) GetOrCreate(key string, build func(stagingPath string) error) (*Entry, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	lockPath, cachePath, tempPath := d.paths(key)

	for {
		entry, err := d.tryRead(key, lockPath, cachePath)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return entry, nil
		}

		if err := d.tryCreate(key, lockPath, cachePath, tempPath, build); err != nil {
			return nil, err
		}

		// Whether we created the entry or merely observed that another
		// process already had, we never hand back an entry held under the
		// exclusive lock: advisory locks can't be downgraded atomically,
		// so we restart through the reader path above.
	}
}

// WithEntry is a scoped convenience wrapper combining [Dir.GetOrCreate]
// with [Entry.Release], in the style of the teacher's own WithLock /
// WithTicketLock helpers: use is called with the entry's path while the
// shared lock is held, and the lock is always released before WithEntry
// returns.
func (d *Dir) WithEntry(key string, build func(stagingPath string) error, use func(path string) error) error {
	entry, err := d.GetOrCreate(key, build)
	if err != nil {
		return err
	}

	defer func() {
		if relErr := entry.Release(); relErr != nil {
			d.log.Error().Err(relErr).Str("key", key).Msg("cache: failed to release entry lock")
		}
	}()

	return use(entry.Path())
}

// tryRead is the reader attempt (spec §4.2 step 1): acquire-shared, and if
// the entry exists, return it already locked. A nil, nil result means the
// caller should fall through to the creator attempt - either because the
// lock file didn't exist yet, or because it did but the entry behind it
// didn't (removed between our lock and our existence check).
func (d *Dir) tryRead(key, lockPath, cachePath string) (*Entry, error) {
	h, err := lock.AcquireSharedLogged(lockPath, lock.Block, d.log)
	if err != nil {
		if errors.Is(err, lock.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache: acquiring reader lock: %w", err)
	}

	exists, err := d.fs.Exists(cachePath)
	if err != nil {
		_ = h.Release()
		return nil, fmt.Errorf("cache: checking entry existence: %w", err)
	}

	if !exists {
		if relErr := h.Release(); relErr != nil {
			return nil, relErr
		}
		return nil, nil
	}

	if touchErr := d.fs.Touch(lockPath); touchErr != nil {
		d.log.Warn().Err(touchErr).Str("key", key).Msg("cache: could not update lock file mtime")
	}

	return &Entry{path: cachePath, h: h}, nil
}

// tryCreate is the creator attempt (spec §4.2 step 2): acquire-exclusive
// (blocking, no timeout), and if nobody beat us to it, clean any stale
// staging path, run build, and publish by rename. A nil error here means
// "go try the reader path again" - it does not mean an entry now
// necessarily exists for every caller (another tryCreate call racing into
// the lock right after this one releases it could find it cleared again
// by [Dir.Clear]), so the outer loop always re-verifies via tryRead.
func (d *Dir) tryCreate(key, lockPath, cachePath, tempPath string, build func(string) error) error {
	h, err := lock.AcquireExclusiveLogged(lockPath, lock.Block, d.log)
	if err != nil {
		return fmt.Errorf("cache: acquiring creator lock: %w", err)
	}
	defer func() {
		if relErr := h.Release(); relErr != nil {
			d.log.Error().Err(relErr).Str("key", key).Msg("cache: failed to release creator lock")
		}
	}()

	exists, err := d.fs.Exists(cachePath)
	if err != nil {
		return fmt.Errorf("cache: checking entry existence: %w", err)
	}
	if exists {
		// Created by someone else while we waited for the exclusive lock.
		return nil
	}

	if err := d.fs.MkdirAll(d.root, dirPerm); err != nil {
		return fmt.Errorf("cache: creating cache directory: %w", err)
	}

	if err := d.cleanStale(tempPath); err != nil {
		return fmt.Errorf("cache: cleaning stale staging path: %w", err)
	}

	if buildErr := build(tempPath); buildErr != nil {
		if cleanErr := d.cleanStale(tempPath); cleanErr != nil {
			d.log.Warn().Err(cleanErr).Str("key", key).Msg("cache: failed to clean staging path after build error")
		}
		return fmt.Errorf("%w: %w", ErrBuildFailed, buildErr)
	}

	if err := d.fs.Rename(tempPath, cachePath); err != nil {
		// IOError policy (spec §7): propagate, but remove the staging path
		// on a best-effort basis so a failed publish doesn't leave debris
		// that a later creator would otherwise have to clean up anyway.
		if cleanErr := d.cleanStale(tempPath); cleanErr != nil {
			d.log.Warn().Err(cleanErr).Str("key", key).Msg("cache: failed to clean staging path after publish error")
		}
		return fmt.Errorf("cache: publishing entry: %w", err)
	}

	d.log.Info().Str("key", key).Str("path", cachePath).Msg("cache: entry created")

	return nil
}

// cleanStale removes tempPath if present, whether it's a file or a
// directory. Per the original design's resolved ambiguity, the type check
// inspects the path actually being removed (the staging path), not the
// published entry path.
func (d *Dir) cleanStale(tempPath string) error {
	info, err := d.fs.Stat(tempPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.IsDir() {
		return d.fs.RemoveAll(tempPath)
	}
	return d.fs.Remove(tempPath)
}

func (d *Dir) paths(key string) (lockPath, cachePath, tempPath string) {
	base := filepath.Join(d.root, key)
	return base + lockSuffix, base + cacheSuffix, base + tempSuffix
}

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if filepath.Base(key) != key {
		return fmt.Errorf("%w: %q is not a single path segment", ErrInvalidKey, key)
	}
	return nil
}
