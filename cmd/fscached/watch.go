package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	flag "github.com/spf13/pflag"
	"github.com/thejerf/suture/v4"

	"github.com/brindlewood/fslock/cache"
)

// watchService tails fsnotify events for a cache directory and prints each
// one until ctx is cancelled. It implements suture.Service so the top-level
// supervisor can restart it if the underlying watcher ever errors out,
// rather than the whole command exiting.
type watchService struct {
	dir string
	out func(string)
}

func (s *watchService) Serve(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating fsnotify watcher: %w", err)
	}
	defer watcher.Close() //nolint:errcheck

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("watch: watching %q: %w", s.dir, err)
	}

	s.out(fmt.Sprintf("watching %s", s.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watch: fsnotify event channel closed")
			}
			s.out(fmt.Sprintf("%s %s", event.Op, event.Name))
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watch: fsnotify error channel closed")
			}
			return fmt.Errorf("watch: fsnotify: %w", err)
		}
	}
}

func newWatchCommand() *Command {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "watch <dir>",
		Short: "tail cache-directory filesystem activity until interrupted",
		Exec: func(env *Env, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("%w: usage: watch <dir>", errMissingArgs)
			}

			d := cache.NewDir(args[0], cache.WithLogger(env.Log))
			if err := ensureDirExists(d.Root()); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			sup := suture.New("fscached-watch", suture.Spec{})
			sup.Add(&watchService{dir: d.Root(), out: func(line string) { fmt.Println(line) }})

			return sup.Serve(ctx)
		},
	}
}
