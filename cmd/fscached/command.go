package main

import (
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/rs/zerolog"
)

// Command defines a fscached subcommand with unified flag parsing.
type Command struct {
	Flags *flag.FlagSet
	Usage string
	Short string
	Exec  func(env *Env, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// Env bundles the dependencies every subcommand needs.
type Env struct {
	Cfg Config
	Log *zerolog.Logger
}

func (c *Command) run(env *Env, args []string) int {
	c.Flags.SetOutput(&strings.Builder{})

	if err := c.Flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Println("error:", err)
		return 1
	}

	if err := c.Exec(env, c.Flags.Args()); err != nil {
		fmt.Println("error:", err)
		return 1
	}

	return 0
}
