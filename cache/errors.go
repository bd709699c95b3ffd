package cache

import "errors"

var (
	// ErrInvalidKey is returned when a key is not a valid single path
	// segment (empty, containing a path separator, or "." / "..").
	ErrInvalidKey = errors.New("cache: invalid key")

	// ErrBuildFailed wraps an error returned by a build function passed to
	// [Dir.GetOrCreate]. The staging path has already been removed and no
	// entry was published by the time this is returned.
	ErrBuildFailed = errors.New("cache: build failed")
)
