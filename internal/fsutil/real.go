package fsutil

import (
	"errors"
	"os"
	"time"
)

// Real implements [FS] against the real filesystem. All methods are
// passthroughs to the [os] package, matching the teacher repo's own
// internal/fs.Real: no behavior is reinvented, only the interface is
// narrowed to what the cache protocol actually calls.
type Real struct{}

// NewReal returns a [Real] filesystem.
func NewReal() *Real {
	return &Real{}
}

func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (r *Real) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, err
}

func (r *Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (r *Real) Remove(path string) error {
	return os.Remove(path)
}

func (r *Real) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (r *Real) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (r *Real) Touch(path string) error {
	now := time.Now()
	return os.Chtimes(path, now, now)
}

var _ FS = (*Real)(nil)
