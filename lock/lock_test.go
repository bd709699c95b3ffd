package lock

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAcquireShared_MissingFile_ReturnsNotFoundAndDoesNotCreate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing")

	h, err := AcquireShared(path, Block)
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, h)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "shared acquisition must not create the file")
}

func TestAcquireExclusive_MissingFile_CreatesIt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "created")

	h, err := AcquireExclusive(path, Block)
	require.NoError(t, err)
	require.NotNil(t, h)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	require.NoError(t, h.Release())
}

func TestAcquireShared_MultipleHoldersCoexist(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shared")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	h1, err := AcquireShared(path, Block)
	require.NoError(t, err)
	defer h1.Release() //nolint:errcheck

	h2, err := AcquireShared(path, 0)
	require.NoError(t, err)
	defer h2.Release() //nolint:errcheck
}

func TestAcquireExclusive_ExcludesShared(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "excl")

	h, err := AcquireExclusive(path, Block)
	require.NoError(t, err)
	defer h.Release() //nolint:errcheck

	_, err = AcquireShared(path, 0)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestAcquireExclusive_ExcludesExclusive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "excl2")

	h, err := AcquireExclusive(path, Block)
	require.NoError(t, err)
	defer h.Release() //nolint:errcheck

	_, err = AcquireExclusive(path, 0)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestAcquireExclusive_TimeoutPrecision(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "timed")

	h, err := AcquireExclusive(path, Block)
	require.NoError(t, err)
	defer h.Release() //nolint:errcheck

	const want = 300 * time.Millisecond

	start := time.Now()
	_, err = AcquireExclusive(path, want)
	elapsed := time.Since(start)

	require.ErrorIs(t, err, ErrTimeout)
	require.InDelta(t, want.Seconds(), elapsed.Seconds(), 0.15)
}

func TestHandle_Release_IsNotIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "release-once")

	h, err := AcquireExclusive(path, Block)
	require.NoError(t, err)

	require.NoError(t, h.Release())

	err = h.Release()
	require.ErrorIs(t, err, ErrAlreadyReleased)
}

func TestAcquireExclusive_ReleaseUnblocksWaiter(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "handoff")

	h, err := AcquireExclusive(path, Block)
	require.NoError(t, err)

	var acquired atomic.Bool

	done := make(chan error, 1)
	go func() {
		h2, acqErr := AcquireExclusive(path, 5*time.Second)
		if acqErr == nil {
			acquired.Store(true)
			done <- h2.Release()
			return
		}
		done <- acqErr
	}()

	time.Sleep(100 * time.Millisecond)
	require.False(t, acquired.Load(), "second acquirer must not succeed while first holds the lock")

	require.NoError(t, h.Release())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never unblocked after release")
	}

	require.True(t, acquired.Load())
}

func TestMode_String(t *testing.T) {
	t.Parallel()

	require.Equal(t, "shared", Shared.String())
	require.Equal(t, "exclusive", Exclusive.String())
}

func TestErrorsAreDistinct(t *testing.T) {
	t.Parallel()

	require.False(t, errors.Is(ErrNotFound, ErrTimeout))
	require.False(t, errors.Is(ErrTimeout, ErrReleaseFailure))
}
