package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/brindlewood/fslock/cache"
)

func newGetCommand() *Command {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "get <dir> <key> -- <cmd...>",
		Short: "get-or-create a cache entry, building it with an external command if missing",
		Exec: func(env *Env, args []string) error {
			if len(args) < 3 {
				return fmt.Errorf("%w: usage: get <dir> <key> -- <cmd...>", errMissingArgs)
			}

			dir, key, build := args[0], args[1], args[2:]
			if build[0] == "--" {
				build = build[1:]
			}
			if len(build) == 0 {
				return fmt.Errorf("%w: no build command given after --", errMissingArgs)
			}

			d := cache.NewDir(dir, cache.WithLogger(env.Log))

			entry, err := d.GetOrCreate(key, func(stagingPath string) error {
				return runBuildCommand(build, stagingPath)
			})
			if err != nil {
				return err
			}
			defer entry.Release() //nolint:errcheck

			fmt.Println(entry.Path())
			return nil
		},
	}
}
