// Package lock provides a multi-process advisory file lock built on
// flock(2), with cancellable acquisition and descriptor isolation across
// process restarts of the locking file descriptor (see [AcquireExclusive]
// and [AcquireShared]).
package lock

import (
	"time"

	"github.com/rs/zerolog"
)

// Block, when passed as the timeout to [AcquireShared] or
// [AcquireExclusive], means "wait indefinitely."
const Block time.Duration = -1

// nopLogger is the default logger: the library is silent unless a host
// opts in, following zerolog's own recommendation for library code.
var nopLogger = zerolog.Nop()

// AcquireExclusive acquires an exclusive lock on path, creating path (and
// any missing parent directories) if it does not already exist.
//
//   - timeout < 0 (or [Block]): blocks until acquired.
//   - timeout == 0: tries once; returns [ErrTimeout] if not immediately
//     acquirable.
//   - timeout > 0: blocks up to timeout; returns [ErrTimeout] if not
//     acquired in time.
//
// Acquisition runs in an isolated worker subprocess so the locking
// descriptor cannot be dropped by unrelated activity elsewhere in this
// process (see package docs and worker.go).
func AcquireExclusive(path string, timeout time.Duration) (*Handle, error) {
	return acquire(path, Exclusive, timeout, &nopLogger)
}

// AcquireShared acquires a shared lock on path. Unlike [AcquireExclusive],
// it requires path to already exist and returns [ErrNotFound] if it does
// not - the shared case deliberately never creates the file.
func AcquireShared(path string, timeout time.Duration) (*Handle, error) {
	return acquire(path, Shared, timeout, &nopLogger)
}

// AcquireExclusiveLogged is [AcquireExclusive] with an explicit logger for
// lifecycle events (acquired/released at Info, timeout at Warn, release
// failure at Error).
func AcquireExclusiveLogged(path string, timeout time.Duration, log *zerolog.Logger) (*Handle, error) {
	return acquire(path, Exclusive, timeout, log)
}

// AcquireSharedLogged is [AcquireShared] with an explicit logger.
func AcquireSharedLogged(path string, timeout time.Duration, log *zerolog.Logger) (*Handle, error) {
	return acquire(path, Shared, timeout, log)
}

func acquire(path string, mode Mode, timeout time.Duration, log *zerolog.Logger) (*Handle, error) {
	if log == nil {
		log = &nopLogger
	}

	w, err := spawnWorker(path, mode, timeout, log)
	if err != nil {
		return nil, err
	}

	return &Handle{path: path, mode: mode, worker: w}, nil
}

// FSLockExclusive acquires an exclusive lock on path (creating it if
// needed), runs fn while holding it, and releases the lock before
// returning - whether fn returns an error or not.
//
// This is the thin "named to fix the boundary" public wrapper the
// original design calls out: it adds no logic beyond scoping
// [AcquireExclusive] + [Handle.Release] around fn, the same way the
// teacher's WithLock/WithTicketLock helpers scope acquisition around a
// callback.
func FSLockExclusive(path string, timeout time.Duration, fn func() error) error {
	h, err := AcquireExclusive(path, timeout)
	if err != nil {
		return err
	}
	defer h.Release() //nolint:errcheck // caller gets fn's error; release failures are logged

	return fn()
}

// FSLockShared is [FSLockExclusive]'s shared-lock counterpart.
func FSLockShared(path string, timeout time.Duration, fn func() error) error {
	h, err := AcquireShared(path, timeout)
	if err != nil {
		return err
	}
	defer h.Release() //nolint:errcheck // caller gets fn's error; release failures are logged

	return fn()
}
