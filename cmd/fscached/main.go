// Command fscached is a small operational CLI over the lock and cache
// packages: get-or-create entries from an external build command, clear a
// cache directory, inspect it, watch it, or drive it from a REPL.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if len(args) == 0 {
		printUsage()
		return 1
	}

	workDir, err := os.Getwd()
	if err != nil {
		fmt.Println("error:", err)
		return 1
	}

	cfg, err := LoadConfig(workDir, "", false, os.Environ())
	if err != nil {
		fmt.Println("error:", err)
		return 1
	}

	commands := map[string]*Command{}
	for _, c := range []*Command{
		newGetCommand(),
		newClearCommand(),
		newStatsCommand(),
		newWatchCommand(),
		newShellCommand(),
	} {
		commands[c.Name()] = c
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Printf("error: %s: %q\n", errUnknownCommand, args[0])
		printUsage()
		return 1
	}

	env := &Env{Cfg: cfg, Log: &logger}

	return cmd.run(env, args[1:])
}

func printUsage() {
	fmt.Println("Usage: fscached <command> [flags] [args...]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  get <dir> <key> -- <cmd...>   get-or-create, building via an external command")
	fmt.Println("  clear <dir>                   delete every entry")
	fmt.Println("  stats <dir>                   list entries with size and mtime")
	fmt.Println("  watch <dir>                   tail filesystem activity")
	fmt.Println("  shell <dir>                   interactive REPL")
}
