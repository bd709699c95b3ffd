package cache

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/brindlewood/fslock/lock"
)

// retryTimeout is the per-entry timeout used for the second pass of a
// clear run with onlyIfPossible=false - the canonical value from the
// design notes.
const retryTimeout = 60 * time.Second

// ClearReport summarizes a [Dir.Clear] run.
type ClearReport struct {
	// Deleted lists the keys that were removed, in the order processed.
	Deleted []string
	// Skipped lists keys that matched shouldDelete but could not be
	// deleted because their lock file was held by someone else.
	Skipped []string
}

// Clear enumerates every key with a published entry under dir, in
// lexicographic order, and deletes the ones for which shouldDelete
// returns true. shouldDelete == nil deletes everything.
//
// If onlyIfPossible is true, a currently-locked entry is skipped in a
// single pass (timeout 0) and reported in ClearReport.Skipped. If false,
// entries skipped in that first pass are retried once more with a
// 60-second per-entry timeout before being reported as skipped.
//
// Deletion itself is strictly sequential, so ClearReport.Deleted is
// reproducible across runs against the same directory state - useful for
// tests, and the only ordering guarantee this package makes (callers
// should not otherwise depend on it).
func (d *Dir) Clear(shouldDelete func(key string) bool, onlyIfPossible bool) (ClearReport, error) {
	if shouldDelete == nil {
		shouldDelete = func(string) bool { return true }
	}

	keys, err := d.cacheKeys()
	if err != nil {
		return ClearReport{}, fmt.Errorf("cache: listing entries: %w", err)
	}

	var report ClearReport
	var pending []string

	for _, key := range keys {
		if !shouldDelete(key) {
			continue
		}

		deleted, err := d.tryDeleteEntry(key, 0)
		if err != nil {
			return report, err
		}
		if deleted {
			report.Deleted = append(report.Deleted, key)
			continue
		}

		pending = append(pending, key)
	}

	if onlyIfPossible {
		for _, key := range pending {
			d.log.Warn().Str("key", key).Msg("cache: clear skipped locked entry")
		}
		report.Skipped = pending
		return report, nil
	}

	for _, key := range pending {
		deleted, err := d.tryDeleteEntry(key, retryTimeout)
		if err != nil {
			return report, err
		}
		if deleted {
			report.Deleted = append(report.Deleted, key)
			continue
		}

		d.log.Warn().Str("key", key).Msg("cache: clear skipped entry still locked after retry")
		report.Skipped = append(report.Skipped, key)
	}

	return report, nil
}

// tryDeleteEntry acquires an exclusive lock on key's lock file (so no
// reader or creator can be using it) and removes the entry, the lock
// file, and any stale staging path. Returns (false, nil) if the lock
// could not be acquired within timeout - not an error, per the spec's
// "clear treats Timeout as skip this entry."
func (d *Dir) tryDeleteEntry(key string, timeout time.Duration) (bool, error) {
	lockPath, cachePath, tempPath := d.paths(key)

	h, err := lock.AcquireExclusiveLogged(lockPath, timeout, d.log)
	if err != nil {
		if errors.Is(err, lock.ErrTimeout) {
			return false, nil
		}
		if errors.Is(err, lock.ErrNotFound) {
			// Already gone - a concurrent clear could have won the race.
			return true, nil
		}
		return false, fmt.Errorf("cache: acquiring clear lock for %q: %w", key, err)
	}
	defer func() {
		if relErr := h.Release(); relErr != nil {
			d.log.Error().Err(relErr).Str("key", key).Msg("cache: failed to release clear lock")
		}
	}()

	if err := d.removeEntry(cachePath); err != nil {
		return false, fmt.Errorf("cache: removing entry %q: %w", key, err)
	}

	if err := d.cleanStale(tempPath); err != nil {
		return false, fmt.Errorf("cache: removing staging path for %q: %w", key, err)
	}

	if err := d.fs.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("cache: removing lock file for %q: %w", key, err)
	}

	d.log.Info().Str("key", key).Msg("cache: entry cleared")

	return true, nil
}

func (d *Dir) removeEntry(cachePath string) error {
	info, err := d.fs.Stat(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if info.IsDir() {
		return d.fs.RemoveAll(cachePath)
	}
	return d.fs.Remove(cachePath)
}

func (d *Dir) cacheKeys() ([]string, error) {
	entries, err := d.fs.ReadDir(d.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, cacheSuffix) {
			keys = append(keys, strings.TrimSuffix(name, cacheSuffix))
		}
	}

	sort.Strings(keys)

	return keys, nil
}
