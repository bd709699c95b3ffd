package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/brindlewood/fslock/cache"
)

// shellREPL is an interactive get/clear/stats/quit loop over a single cache
// directory, built on liner for line editing and history the same way
// sloty's REPL is.
type shellREPL struct {
	dir   *cache.Dir
	liner *liner.State
}

func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".fscached_history")
}

func newShellCommand() *Command {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "shell <dir>",
		Short: "interactive get/clear/stats REPL over a cache directory",
		Exec: func(env *Env, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("%w: usage: shell <dir>", errMissingArgs)
			}

			r := &shellREPL{dir: cache.NewDir(args[0], cache.WithLogger(env.Log))}
			return r.run()
		},
	}
}

func (r *shellREPL) run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close() //nolint:errcheck

	r.liner.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f) //nolint:errcheck
		f.Close()
	}

	fmt.Printf("fscached shell (%s)\n", r.dir.Root())
	fmt.Println("Commands: get <key> <- <cmd...> | clear | stats | quit")

	for {
		line, err := r.liner.Prompt("fscached> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}
			return fmt.Errorf("shell: reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")
			r.saveHistory()
			return nil
		case "get":
			r.cmdGet(args)
		case "clear":
			r.cmdClear()
		case "stats":
			r.cmdStats()
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}
	}

	r.saveHistory()
	return nil
}

func (r *shellREPL) saveHistory() {
	path := historyFile()
	if path == "" {
		return
	}
	if f, err := os.Create(path); err == nil {
		r.liner.WriteHistory(f) //nolint:errcheck
		f.Close()
	}
}

func (r *shellREPL) cmdGet(args []string) {
	if len(args) < 2 {
		fmt.Println("usage: get <key> <- <cmd...>")
		return
	}

	key, build := args[0], args[1:]
	if build[0] == "<-" {
		build = build[1:]
	}
	if len(build) == 0 {
		fmt.Println("usage: get <key> <- <cmd...>")
		return
	}

	entry, err := r.dir.GetOrCreate(key, func(staging string) error {
		return runBuildCommand(build, staging)
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer entry.Release() //nolint:errcheck

	fmt.Println(entry.Path())
}

func (r *shellREPL) cmdClear() {
	report, err := r.dir.Clear(nil, true)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Printf("deleted %d, skipped %d\n", len(report.Deleted), len(report.Skipped))
}

func (r *shellREPL) cmdStats() {
	stats, err := gatherStats(r.dir)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, s := range stats {
		fmt.Printf("%-20s %10s %s\n", s.Key, strconv.FormatInt(s.Size, 10), s.ModTime)
	}
}
