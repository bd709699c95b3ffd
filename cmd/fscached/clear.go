package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/brindlewood/fslock/cache"
)

func newClearCommand() *Command {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	timeoutOkOnly := fs.Bool("timeout-ok-only", false, "skip locked entries instead of retrying once with a long timeout")

	return &Command{
		Flags: fs,
		Usage: "clear <dir>",
		Short: "delete every cache entry, reporting what was removed or skipped",
		Exec: func(env *Env, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("%w: usage: clear <dir>", errMissingArgs)
			}

			d := cache.NewDir(args[0], cache.WithLogger(env.Log))

			report, err := d.Clear(nil, *timeoutOkOnly)
			if err != nil {
				return err
			}

			fmt.Printf("deleted: %d, skipped: %d\n", len(report.Deleted), len(report.Skipped))
			for _, key := range report.Deleted {
				fmt.Println("  deleted", key)
			}
			for _, key := range report.Skipped {
				fmt.Println("  skipped", key)
			}

			return nil
		},
	}
}
