package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brindlewood/fslock/internal/fsutil"
)

func TestReal_Exists_ReturnsFalseForNonExistent(t *testing.T) {
	t.Parallel()

	r := fsutil.NewReal()

	exists, err := r.Exists(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.False(t, exists)
}

func TestReal_Exists_ReturnsTrueForFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	r := fsutil.NewReal()

	exists, err := r.Exists(path)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestReal_Rename_MovesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old")
	newPath := filepath.Join(dir, "new")
	require.NoError(t, os.WriteFile(oldPath, []byte("payload"), 0o600))

	r := fsutil.NewReal()
	require.NoError(t, r.Rename(oldPath, newPath))

	content, err := os.ReadFile(newPath)
	require.NoError(t, err)
	require.Equal(t, "payload", string(content))

	require.NoFileExists(t, oldPath)
}

func TestReal_MkdirAll_CreatesNestedDirectories(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	r := fsutil.NewReal()
	require.NoError(t, r.MkdirAll(dir, 0o755))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestReal_RemoveAll_RemovesDirectoryTree(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	nested := filepath.Join(dir, "tree", "leaf")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	r := fsutil.NewReal()
	require.NoError(t, r.RemoveAll(filepath.Join(dir, "tree")))

	require.NoDirExists(t, filepath.Join(dir, "tree"))
}

func TestReal_Touch_AdvancesModTime(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))

	r := fsutil.NewReal()
	require.NoError(t, r.Touch(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.True(t, info.ModTime().After(old))
}
