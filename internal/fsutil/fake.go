package fsutil

import "os"

// Fake wraps [Real], delegating every operation to the real filesystem,
// but lets a test install a trigger on Rename, RemoveAll, or MkdirAll that
// decides - given the arguments of that call - whether to return an
// injected error instead of touching disk.
//
// This is a deliberately smaller cousin of the teacher's internal/fs.Chaos:
// that type injects probabilistic faults across a much larger [File]-level
// surface (partial reads/writes, fsync, seek, ...) because internal/fs
// exposes raw file handles. fsutil.FS only exposes whole-operation calls
// (Stat, Rename, RemoveAll, ...), so a deterministic per-call trigger -
// "fail when this path is involved" - is enough to provoke the same class
// of error paths (a rename that fails midway through publish, a stale
// .temp directory whose removal is denied) without carrying the weight of
// Chaos's RNG-driven config.
type Fake struct {
	*Real

	onRename    func(oldpath, newpath string) error
	onRemoveAll func(path string) error
	onMkdirAll  func(path string) error
}

// NewFake returns a [Fake] with no faults installed; it behaves exactly
// like [Real] until one of the On* methods installs a trigger.
func NewFake() *Fake {
	return &Fake{Real: NewReal()}
}

// OnRename installs trigger, called before every [Fake.Rename]. A non-nil
// error from trigger is returned in place of the real rename; trigger
// returning nil lets the rename proceed against the real filesystem.
func (f *Fake) OnRename(trigger func(oldpath, newpath string) error) {
	f.onRename = trigger
}

// OnRemoveAll installs trigger, called before every [Fake.RemoveAll].
func (f *Fake) OnRemoveAll(trigger func(path string) error) {
	f.onRemoveAll = trigger
}

// OnMkdirAll installs trigger, called before every [Fake.MkdirAll].
func (f *Fake) OnMkdirAll(trigger func(path string) error) {
	f.onMkdirAll = trigger
}

func (f *Fake) Rename(oldpath, newpath string) error {
	if f.onRename != nil {
		if err := f.onRename(oldpath, newpath); err != nil {
			return err
		}
	}
	return f.Real.Rename(oldpath, newpath)
}

func (f *Fake) RemoveAll(path string) error {
	if f.onRemoveAll != nil {
		if err := f.onRemoveAll(path); err != nil {
			return err
		}
	}
	return f.Real.RemoveAll(path)
}

func (f *Fake) MkdirAll(path string, perm os.FileMode) error {
	if f.onMkdirAll != nil {
		if err := f.onMkdirAll(path); err != nil {
			return err
		}
	}
	return f.Real.MkdirAll(path, perm)
}

var _ FS = (*Fake)(nil)
