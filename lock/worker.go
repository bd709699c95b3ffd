package lock

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Descriptor isolation (spec): advisory flock on POSIX is released as soon
// as *any* descriptor to the same inode is closed by the owning process —
// including a descriptor opened later by unrelated code sharing that
// process. The only airtight fix is to hold the locking descriptor in a
// process of its own, so nothing else sharing our descriptor table can
// ever close it out from under us.
//
// Go has no cheap fork(); the standard substitute (popularized by
// docker/docker/pkg/reexec, itself pulled in transitively through this
// module's sibling examples) is to re-exec the current binary with a
// sentinel environment variable, so the freshly started process takes a
// completely different code path before anything resembling its normal
// main() runs.
const (
	envWorkerFlag = "FSLOCK_WORKER"
	envPath       = "FSLOCK_WORKER_PATH"
	envMode       = "FSLOCK_WORKER_MODE"
	envTimeout    = "FSLOCK_WORKER_TIMEOUT"

	modeShared    = "shared"
	modeExclusive = "exclusive"

	statusLocked      = "LOCKED"
	statusNotFound    = "NOTFOUND"
	statusTimeout     = "TIMEOUT"
	statusErrorPrefix = "ERROR"

	unlockSignal = "UNLOCK"

	lockFilePerm = 0o600
	lockDirPerm  = 0o755
)

func init() {
	// Automatic short-circuit: any binary that imports this package
	// transparently becomes worker-capable. See [MaybeRunWorker] for the
	// caveat this convenience carries and the explicit alternative.
	if os.Getenv(envWorkerFlag) == "1" {
		runWorker()
		os.Exit(0)
	}
}

// MaybeRunWorker runs the lock worker loop and exits the process if the
// current process was launched as a worker, returning otherwise.
//
// This package already does the equivalent check in its own init(), which
// runs the worker and exits before main starts, so calling MaybeRunWorker
// is not required for correctness and a call from main only ever sees a
// normal process. It exists as an explicit entry point in the style of
// docker/docker/pkg/reexec's Init(). It does not run before other
// packages' init functions: Go only guarantees that an imported package's
// init runs before its importer's, so a host's own init() elsewhere in the
// import graph may still run first in a worker process. It returns false
// in a normal (non-worker) process.
func MaybeRunWorker() bool {
	if os.Getenv(envWorkerFlag) != "1" {
		return false
	}

	runWorker()
	os.Exit(0)

	return true // unreachable, satisfies the compiler
}

// workerProc is the parent-side handle to a running lock worker.
type workerProc struct {
	cmd      *exec.Cmd
	unlockW  *os.File
	path     string
	mode     Mode
	log      *zerolog.Logger
	released bool
}

// spawnWorker starts a worker subprocess, waits for its first status line,
// and returns either a held workerProc or the classified acquisition
// error (ErrNotFound / ErrTimeout / a wrapped I/O error).
func spawnWorker(path string, mode Mode, timeout time.Duration, log *zerolog.Logger) (*workerProc, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("lock: resolving own executable: %w", err)
	}

	statusR, statusW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("lock: creating status pipe: %w", err)
	}
	defer statusR.Close()

	unlockR, unlockW, err := os.Pipe()
	if err != nil {
		statusW.Close()
		return nil, fmt.Errorf("lock: creating unlock pipe: %w", err)
	}
	defer unlockR.Close()

	modeStr := modeShared
	if mode == Exclusive {
		modeStr = modeExclusive
	}

	cmd := exec.Command(self)
	cmd.Env = append(os.Environ(),
		envWorkerFlag+"=1",
		envPath+"="+path,
		envMode+"="+modeStr,
		envTimeout+"="+strconv.FormatInt(int64(timeout), 10),
	)
	cmd.ExtraFiles = []*os.File{statusW, unlockR}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		statusW.Close()
		unlockW.Close()
		return nil, fmt.Errorf("lock: starting worker: %w", err)
	}

	// The child has its own copies of statusW/unlockR (duplicated across
	// exec); close ours so the child's EOF/write behavior on the pipes
	// isn't confused by a second, unused set of descriptors in the parent.
	statusW.Close()
	unlockR.Close()

	line, err := bufio.NewReader(statusR).ReadString('\n')
	if err != nil {
		_ = cmd.Wait()
		unlockW.Close()
		return nil, fmt.Errorf("lock: reading worker status: %w", err)
	}
	line = strings.TrimSpace(line)

	log.Debug().Str("path", path).Str("mode", modeStr).Str("status", line).Msg("lock worker reported status")

	switch {
	case line == statusLocked:
		log.Info().Str("path", path).Str("mode", modeStr).Msg("lock acquired")
		return &workerProc{cmd: cmd, unlockW: unlockW, path: path, mode: mode, log: log}, nil

	case line == statusNotFound:
		_ = cmd.Wait()
		unlockW.Close()
		return nil, ErrNotFound

	case line == statusTimeout:
		log.Warn().Str("path", path).Str("mode", modeStr).Dur("timeout", timeout).Msg("lock acquisition timed out")
		_ = cmd.Wait()
		unlockW.Close()
		return nil, ErrTimeout

	case strings.HasPrefix(line, statusErrorPrefix):
		_ = cmd.Wait()
		unlockW.Close()
		msg := strings.TrimSpace(strings.TrimPrefix(line, statusErrorPrefix))
		return nil, fmt.Errorf("lock: worker error: %s", msg)

	default:
		_ = cmd.Wait()
		unlockW.Close()
		return nil, fmt.Errorf("lock: worker sent unrecognized status %q", line)
	}
}

// release signals the worker to unlock and exit, then waits for it.
func (w *workerProc) release() error {
	if w == nil {
		return nil
	}

	if w.released {
		return nil
	}
	w.released = true

	_, writeErr := fmt.Fprintln(w.unlockW, unlockSignal)
	_ = w.unlockW.Close()

	waitErr := w.cmd.Wait()

	if waitErr != nil {
		w.log.Error().Err(waitErr).Str("path", w.path).Str("mode", w.mode.String()).
			Msg("lock worker did not confirm release")
		return fmt.Errorf("%w: %v", ErrReleaseFailure, waitErr)
	}

	if writeErr != nil {
		// The worker exited 0 despite us failing to signal it - this can
		// only happen if it died and the kernel already dropped the lock
		// on its own. Treat this as a release, but log it: it means the
		// worker exited without waiting for our signal.
		w.log.Warn().Err(writeErr).Str("path", w.path).Msg("lock worker exited before receiving unlock signal")
	}

	w.log.Info().Str("path", w.path).Str("mode", w.mode.String()).Msg("lock released")

	return nil
}

// runWorker is the entire body of the re-exec'd child process. It never
// returns to its caller's caller - the process exits from here.
//
// State machine (spec): Starting -> Opening -> Locking -> Held ->
// Releasing -> Exited.
func runWorker() {
	path := os.Getenv(envPath)
	exclusive := os.Getenv(envMode) == modeExclusive

	statusW := os.NewFile(3, "fslock-status")
	unlockR := os.NewFile(4, "fslock-unlock")
	if statusW == nil || unlockR == nil {
		return // no pipes - nothing we can report to, just exit
	}

	timeoutNanos, err := strconv.ParseInt(os.Getenv(envTimeout), 10, 64)
	if err != nil {
		fmt.Fprintln(statusW, statusErrorPrefix+" invalid timeout: "+err.Error())
		return
	}
	timeout := time.Duration(timeoutNanos)

	// Opening.
	flag := os.O_RDONLY
	if exclusive {
		flag = os.O_RDWR | os.O_CREATE
	}

	file, err := openLockFile(path, flag)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(statusW, statusNotFound)
		} else {
			fmt.Fprintln(statusW, statusErrorPrefix+" "+err.Error())
		}
		return
	}
	defer file.Close()

	// Locking.
	op := unix.LOCK_SH
	if exclusive {
		op = unix.LOCK_EX
	}

	fd := int(file.Fd())

	locked, err := lockWithTimeout(fd, op, timeout)
	if err != nil {
		fmt.Fprintln(statusW, statusErrorPrefix+" "+err.Error())
		return
	}
	if !locked {
		fmt.Fprintln(statusW, statusTimeout)
		return
	}

	// Held.
	fmt.Fprintln(statusW, statusLocked)

	reader := bufio.NewReader(unlockR)
	_, _ = reader.ReadString('\n') // blocks until UNLOCK or pipe close (EOF)

	// Releasing -> Exited: unlocking explicitly is belt-and-suspenders,
	// since closing file below (and the process exiting) already drops
	// the flock.
	_ = flockRetryEINTR(fd, unix.LOCK_UN)
}

func openLockFile(path string, flag int) (*os.File, error) {
	f, err := os.OpenFile(path, flag, lockFilePerm)
	if err == nil || !errors.Is(err, os.ErrNotExist) || flag&os.O_CREATE == 0 {
		return f, err
	}

	// Exclusive acquisition creates missing parent directories lazily,
	// mirroring the teacher's internal/fs.Locker.openLockFile.
	if mkErr := os.MkdirAll(filepath.Dir(path), lockDirPerm); mkErr != nil {
		return nil, mkErr
	}

	return os.OpenFile(path, flag, lockFilePerm)
}

// lockWithTimeout blocks indefinitely if timeout < 0, tries once
// non-blocking if timeout == 0, and otherwise polls with exponential
// backoff (1ms -> 25ms) until timeout elapses - the same polling idiom
// the teacher's internal/fs.Locker.lockPolling documents and accepts as
// best-effort for timeout precision.
func lockWithTimeout(fd int, op int, timeout time.Duration) (bool, error) {
	if timeout < 0 {
		if err := flockRetryEINTR(fd, op); err != nil {
			return false, err
		}
		return true, nil
	}

	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	for {
		err := flockRetryEINTR(fd, op|unix.LOCK_NB)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EAGAIN) {
			return false, err
		}

		if timeout == 0 {
			return false, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false, nil
		}

		sleep := backoff
		if sleep > remaining {
			sleep = remaining
		}
		time.Sleep(sleep)

		if backoff < 25*time.Millisecond {
			backoff *= 2
			if backoff > 25*time.Millisecond {
				backoff = 25 * time.Millisecond
			}
		}
	}
}

// flockRetryEINTR wraps flock(2), retrying on EINTR - a blocking syscall
// interrupted by an unrelated signal (SIGCHLD, SIGWINCH, ...) has not
// failed, it just needs to be retried. Capped so a pathological signal
// storm can't spin forever.
func flockRetryEINTR(fd int, how int) error {
	const maxRetries = 10000

	var err error
	for range maxRetries {
		err = unix.Flock(fd, how)
		if err == nil || !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}
