package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sebdah/goldie/v2"

	"github.com/brindlewood/fslock/cache"
)

func newGolden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestPrintStats_JSON(t *testing.T) {
	entries := []entryStats{
		{Key: "alpha", Size: 3, ModTime: "2026-01-01T00:00:00Z"},
		{Key: "beta", Size: 0, ModTime: "2026-01-02T00:00:00Z"},
	}

	var buf bytes.Buffer
	if err := printStats(&buf, entries, "json", ""); err != nil {
		t.Fatalf("printStats: %v", err)
	}

	newGolden(t).Assert(t, "stats-json", buf.Bytes())
}

func TestPrintStats_YAML(t *testing.T) {
	entries := []entryStats{
		{Key: "alpha", Size: 3, ModTime: "2026-01-01T00:00:00Z"},
	}

	var buf bytes.Buffer
	if err := printStats(&buf, entries, "yaml", ""); err != nil {
		t.Fatalf("printStats: %v", err)
	}

	// yaml.v3's exact scalar quoting isn't worth pinning byte-for-byte in a
	// golden file; just check the fields round-trip.
	out := buf.String()
	for _, want := range []string{"key: alpha", "size: 3"} {
		if !bytes.Contains([]byte(out), []byte(want)) {
			t.Fatalf("yaml output missing %q, got:\n%s", want, out)
		}
	}
}

func TestPrintStats_JQFilter(t *testing.T) {
	entries := []entryStats{
		{Key: "alpha", Size: 3, ModTime: "2026-01-01T00:00:00Z"},
		{Key: "beta", Size: 7, ModTime: "2026-01-02T00:00:00Z"},
	}

	var buf bytes.Buffer
	if err := printStats(&buf, entries, "json", "[.[].key]"); err != nil {
		t.Fatalf("printStats: %v", err)
	}

	newGolden(t).Assert(t, "stats-jq-keys", buf.Bytes())
}

func TestGatherStats_ReflectsCacheDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := cache.NewDir(root)

	entry, err := dir.GetOrCreate("k", func(staging string) error {
		return os.WriteFile(staging, []byte("hello"), 0o600)
	})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	defer entry.Release() //nolint:errcheck

	stats, err := gatherStats(dir)
	if err != nil {
		t.Fatalf("gatherStats: %v", err)
	}
	if len(stats) != 1 || stats[0].Key != "k" || stats[0].Size != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGatherStats_MultipleEntriesMatchExpectedShape(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := cache.NewDir(root)

	for key, content := range map[string]string{"alpha": "xyz", "beta": "12345"} {
		entry, err := dir.GetOrCreate(key, func(staging string) error {
			return os.WriteFile(staging, []byte(content), 0o600)
		})
		if err != nil {
			t.Fatalf("GetOrCreate(%s): %v", key, err)
		}
		entry.Release() //nolint:errcheck
	}

	stats, err := gatherStats(dir)
	if err != nil {
		t.Fatalf("gatherStats: %v", err)
	}

	want := []entryStats{
		{Key: "alpha", Size: 3},
		{Key: "beta", Size: 5},
	}

	// ModTime is wall-clock and not worth pinning; compare everything else.
	if diff := cmp.Diff(want, stats, cmpopts.IgnoreFields(entryStats{}, "ModTime")); diff != "" {
		t.Fatalf("gatherStats mismatch (-want +got):\n%s", diff)
	}
}

func TestGatherStats_MissingDirectoryIsEmpty(t *testing.T) {
	t.Parallel()

	dir := cache.NewDir(filepath.Join(t.TempDir(), "missing"))

	stats, err := gatherStats(dir)
	if err != nil {
		t.Fatalf("gatherStats: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected no stats, got %+v", stats)
	}
}
