package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one treadmill subcommand. Help output is generated from Usage,
// Short/Long, Examples and Flags.
type Command struct {
	// Flags holds the command's own flags. Global flags are parsed before
	// dispatch and never reach it.
	Flags *flag.FlagSet

	// Usage follows "treadmill " in help; its first word is the command name.
	Usage string

	// Short is the one-line summary in the command list.
	Short string

	// Long is the body of "treadmill <cmd> --help". Short is used when empty.
	Long string

	// Examples are printed one per line under "Examples:".
	Examples []string

	// Exec runs with the positional arguments left after flag parsing.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name is the first word of Usage.
func (c *Command) Name() string {
	if fields := strings.Fields(c.Usage); len(fields) > 0 {
		return fields[0]
	}

	return ""
}

// HelpLine is the command's row in the top-level usage.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-26s %s", c.Usage, c.Short)
}

// PrintHelp writes the full help for the command to stdout.
func (c *Command) PrintHelp(o *IO) {
	body := c.Long
	if body == "" {
		body = c.Short
	}

	o.Printf("Usage: treadmill %s\n\n%s\n", c.Usage, body)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Printf("\nFlags:\n%s", c.Flags.FlagUsages())
	}

	if len(c.Examples) > 0 {
		o.Println()
		o.Println("Examples:")

		for _, ex := range c.Examples {
			o.Println("  treadmill " + ex)
		}
	}
}

// Run parses args into Flags and calls Exec. It prints errors itself and
// returns the process exit code.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	// pflag would print its own usage on error.
	c.Flags.SetOutput(&strings.Builder{})

	switch err := c.Flags.Parse(args); {
	case errors.Is(err, flag.ErrHelp):
		c.PrintHelp(o)

		return 0
	case err != nil:
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)

		return 1
	}

	err := c.Exec(ctx, o, c.Flags.Args())
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	return o.Finish()
}
