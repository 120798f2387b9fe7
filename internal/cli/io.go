package cli

import (
	"fmt"
	"io"
)

// IO is a command's view of stdout and stderr.
//
// Warnings are non-fatal problems worth acting on. They go to stderr twice,
// once ahead of the first stdout line and once from Finish, so they stay
// visible when output is piped through head or tail.
type IO struct {
	out    io.Writer
	errOut io.Writer

	warnings []string
	// announced is set once warnings were printed ahead of stdout.
	announced bool
}

// NewIO returns an IO writing to out and errOut.
func NewIO(out, errOut io.Writer) *IO {
	return &IO{out: out, errOut: errOut}
}

// Warn records what went wrong and what to do about it. Any warning makes
// Finish return exit code 1.
func (o *IO) Warn(issue, action string) {
	o.warnings = append(o.warnings, issue+": "+action)
}

// Println writes a line to stdout.
func (o *IO) Println(a ...any) {
	o.announce()
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	o.announce()
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes a line to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Finish prints the warnings again and returns the exit code: 1 if there were
// any, else 0.
func (o *IO) Finish() int {
	o.announce()

	if len(o.warnings) == 0 {
		return 0
	}

	o.printWarnings()

	return 1
}

func (o *IO) announce() {
	if o.announced || len(o.warnings) == 0 {
		return
	}

	o.announced = true
	o.printWarnings()
}

func (o *IO) printWarnings() {
	for _, w := range o.warnings {
		_, _ = fmt.Fprintln(o.errOut, "warning:", w)
	}
}
