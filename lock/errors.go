package lock

import "errors"

var (
	// ErrNotFound is returned by AcquireShared when path does not exist.
	// Shared acquisition deliberately never creates the file.
	ErrNotFound = errors.New("lock: file does not exist")

	// ErrTimeout is returned when an acquisition with a finite timeout
	// (including the zero, try-once timeout) did not succeed in time.
	ErrTimeout = errors.New("lock: timed out acquiring lock")

	// ErrReleaseFailure is returned by [Handle.Release] when the worker
	// holding the descriptor exited abnormally, so the kernel's release of
	// the flock could not be confirmed. Per the protocol this is a fatal
	// condition for the host process: a stuck advisory lock on a
	// long-lived process cannot be recovered short of terminating the
	// process that holds it. The library reports the error; it is the
	// host's decision whether and how to terminate.
	ErrReleaseFailure = errors.New("lock: worker failed to confirm release")

	// ErrAlreadyReleased is returned when Release is called a second time
	// on a handle. A [Handle] is consumed exactly once.
	ErrAlreadyReleased = errors.New("lock: handle already released")
)
