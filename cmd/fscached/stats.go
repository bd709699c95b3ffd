package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/itchyny/gojq"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/brindlewood/fslock/cache"
)

// entryStats describes one published cache entry for the stats command.
type entryStats struct {
	Key     string `json:"key" yaml:"key"`
	Size    int64  `json:"size" yaml:"size"`
	ModTime string `json:"mod_time" yaml:"mod_time"` //nolint:tagliatelle
}

func newStatsCommand() *Command {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	format := fs.String("format", "", "output format: json or yaml (defaults to the config/cache-dir setting)")
	jqFilter := fs.String("jq", "", "filter the entry list through a jq expression before printing")

	return &Command{
		Flags: fs,
		Usage: "stats <dir> [--format json|yaml] [--jq FILTER]",
		Short: "list cache entries with size and modification time",
		Exec: func(env *Env, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("%w: usage: stats <dir>", errMissingArgs)
			}

			d := cache.NewDir(args[0], cache.WithLogger(env.Log))

			entries, err := gatherStats(d)
			if err != nil {
				return err
			}

			outFormat := *format
			if outFormat == "" {
				outFormat = env.Cfg.Format
			}

			return printStats(os.Stdout, entries, outFormat, *jqFilter)
		},
	}
}

func gatherStats(d *cache.Dir) ([]entryStats, error) {
	dirEntries, err := os.ReadDir(d.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stats: reading cache dir: %w", err)
	}

	var stats []entryStats
	for _, de := range dirEntries {
		name := de.Name()
		if !strings.HasSuffix(name, ".cache") {
			continue
		}

		info, err := de.Info()
		if err != nil {
			continue
		}

		stats = append(stats, entryStats{
			Key:     strings.TrimSuffix(name, ".cache"),
			Size:    sizeOf(info),
			ModTime: info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Key < stats[j].Key })

	return stats, nil
}

func sizeOf(info os.FileInfo) int64 {
	if info.IsDir() {
		return 0
	}
	return info.Size()
}

// printStats renders entries as JSON or YAML, optionally piping the JSON
// representation through a gojq filter first - the same ad hoc querying
// approach gojq is built for when used as a library rather than a CLI.
func printStats(w io.Writer, entries []entryStats, format string, jqFilter string) error {
	if jqFilter != "" {
		return printFiltered(w, entries, jqFilter)
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close() //nolint:errcheck
		return enc.Encode(entries)
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	default:
		return fmt.Errorf("%w: unknown format %q (want json or yaml)", errConfigInvalid, format)
	}
}

func printFiltered(w io.Writer, entries []entryStats, jqFilter string) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("stats: marshaling entries: %w", err)
	}

	var input any
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("stats: decoding entries: %w", err)
	}

	query, err := gojq.Parse(jqFilter)
	if err != nil {
		return fmt.Errorf("stats: parsing jq filter: %w", err)
	}

	iter := query.Run(input)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, ok := v.(error); ok {
			return fmt.Errorf("stats: evaluating jq filter: %w", err)
		}
		if err := enc.Encode(v); err != nil {
			return err
		}
	}
}
