package cache

import "github.com/sourcegraph/conc"

// WarmConcurrently runs GetOrCreate for every key in keys concurrently,
// using github.com/sourcegraph/conc so a panic inside one build call
// surfaces at WarmConcurrently's return (re-raised from Wait) instead of
// silently crashing the whole process from an unrecovered goroutine.
//
// Concurrent GetOrCreate calls for distinct keys never contend: each key
// has its own lock file. Calls for the same key are safe too - the usual
// at-most-one-builder guarantee applies - but offer no speedup, since all
// but one will simply block behind the first.
//
// The returned slice is index-aligned with keys: errs[i] is the error (if
// any) for keys[i], either from building the entry or from releasing it.
func WarmConcurrently(d *Dir, keys []string, build func(key, stagingPath string) error) []error {
	errs := make([]error, len(keys))

	var wg conc.WaitGroup
	for i, key := range keys {
		i, key := i, key
		wg.Go(func() {
			entry, err := d.GetOrCreate(key, func(staging string) error {
				return build(key, staging)
			})
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = entry.Release()
		})
	}
	wg.Wait()

	return errs
}
