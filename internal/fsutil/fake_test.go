package fsutil_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brindlewood/fslock/internal/fsutil"
)

func TestFake_NoTriggersInstalled_BehavesLikeReal(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old")
	newPath := filepath.Join(dir, "new")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o600))

	f := fsutil.NewFake()
	require.NoError(t, f.Rename(oldPath, newPath))
	require.FileExists(t, newPath)
}

func TestFake_OnRename_InjectsErrorWithoutTouchingDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old")
	newPath := filepath.Join(dir, "new")
	require.NoError(t, os.WriteFile(oldPath, []byte("x"), 0o600))

	sentinel := errors.New("disk full")

	f := fsutil.NewFake()
	f.OnRename(func(string, string) error { return sentinel })

	err := f.Rename(oldPath, newPath)
	require.ErrorIs(t, err, sentinel)

	// The real rename must never have run.
	require.FileExists(t, oldPath)
	require.NoFileExists(t, newPath)
}

func TestFake_OnRemoveAll_InjectsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "tree")
	require.NoError(t, os.MkdirAll(target, 0o755))

	sentinel := errors.New("permission denied")

	f := fsutil.NewFake()
	f.OnRemoveAll(func(string) error { return sentinel })

	err := f.RemoveAll(target)
	require.ErrorIs(t, err, sentinel)
	require.DirExists(t, target)
}

func TestFake_OnMkdirAll_InjectsError(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested")
	sentinel := errors.New("read-only filesystem")

	f := fsutil.NewFake()
	f.OnMkdirAll(func(string) error { return sentinel })

	err := f.MkdirAll(dir, 0o755)
	require.ErrorIs(t, err, sentinel)
	require.NoDirExists(t, dir)
}
