package cli

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/calvinalkan/treadmill/internal/runtime"
	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

var (
	errUnknownReplCommand = errors.New("unknown command")
	errReplUsage          = errors.New("usage")
	errBadCell            = errors.New("bad cell")
)

// replCommands is the command table shown by help and used for completion.
var replCommands = []struct {
	name  string
	usage string
	short string
}{
	{"alloc", "alloc [n | ind [cell] | dist [cells...]]", "Allocate an integer, indirection or distribution"},
	{"garbage", "garbage <n>", "Allocate n unrooted integers"},
	{"root", "root <cell>", "Add a cell to the root set"},
	{"unroot", "unroot <cell>", "Remove a cell from the root set"},
	{"roots", "roots", "List the root set"},
	{"link", "link <from> <to>", "Point an indirection at, or append to a distribution, another cell"},
	{"read", "read <cell>", "Read a cell through the barrier and show its color"},
	{"stats", "stats", "Show heap counters"},
	{"arcs", "arcs", "Show the length of each colored arc"},
	{"cells", "cells", "List every cell in ring order with its color"},
	{"check", "check", "Verify heap invariants"},
	{"help", "help", "Show this help"},
	{"quit", "quit", "Leave the repl"},
}

// Session runs repl command lines against one runtime.
type Session struct {
	rt *runtime.Runtime
	o  *IO
}

// NewSession returns a session writing its output to o.
func NewSession(rt *runtime.Runtime, o *IO) *Session {
	return &Session{rt: rt, o: o}
}

// Exec runs one command line. quit reports whether the session should end.
func (s *Session) Exec(line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		s.printHelp()
	case "alloc":
		err = s.cmdAlloc(args)
	case "garbage":
		err = s.cmdGarbage(args)
	case "root":
		err = s.cmdRoot(args)
	case "unroot":
		err = s.cmdUnroot(args)
	case "roots":
		s.printRoots()
	case "link":
		err = s.cmdLink(args)
	case "read":
		err = s.cmdRead(args)
	case "stats":
		s.cmdStats()
	case "arcs":
		err = s.cmdArcs()
	case "cells":
		s.cmdCells()
	case "check":
		err = s.cmdCheck()
	default:
		err = fmt.Errorf("%w: %s (type 'help' for commands)", errUnknownReplCommand, cmd)
	}

	return false, err
}

func (s *Session) printHelp() {
	s.o.Println("Commands:")

	for _, c := range replCommands {
		s.o.Printf("  %-42s %s\n", c.usage, c.short)
	}

	s.o.Println()
	s.o.Println("Cells are written as @3 or 3; nil is the null reference.")
	s.o.Println("Cells that are neither rooted nor reachable from a root may be reused by any allocation.")
}

func (s *Session) cmdAlloc(args []string) error {
	var obj runtime.Object

	switch {
	case len(args) == 0:
		obj = runtime.Integer{}
	case args[0] == "ind":
		target := treadmill.Nil

		if len(args) > 2 {
			return fmt.Errorf("%w: alloc ind [cell]", errReplUsage)
		}

		if len(args) == 2 {
			c, err := s.parseCell(args[1], true)
			if err != nil {
				return err
			}

			target = c
		}

		obj = runtime.Indirection{Target: target}
	case args[0] == "dist":
		elements, err := s.parseCells(args[1:])
		if err != nil {
			return err
		}

		obj = runtime.Distribution{Type: treadmill.Nil, N: treadmill.Nil, Elements: elements}
	default:
		if len(args) != 1 {
			return fmt.Errorf("%w: alloc [n]", errReplUsage)
		}

		n, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("%w: alloc [n | ind [cell] | dist [cells...]]: %w", errReplUsage, err)
		}

		obj = runtime.Integer{Value: n}
	}

	cell := s.rt.Alloc(obj)
	s.o.Printf("@%d = %s\n", cell, obj)

	return nil
}

func (s *Session) cmdGarbage(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: garbage <n>", errReplUsage)
	}

	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return fmt.Errorf("%w: garbage <n>: want a non-negative count, got %q", errReplUsage, args[0])
	}

	for i := range n {
		s.rt.Alloc(runtime.Integer{Value: int64(i)})
	}

	s.o.Println(s.rt.Heap().String())

	return nil
}

func (s *Session) cmdRoot(args []string) error {
	c, err := s.oneCell("root <cell>", args)
	if err != nil {
		return err
	}

	s.rt.AddRoot(c)
	s.printRoots()

	return nil
}

func (s *Session) cmdUnroot(args []string) error {
	c, err := s.oneCell("unroot <cell>", args)
	if err != nil {
		return err
	}

	err = s.rt.RemoveRoot(c)
	if err != nil {
		return err
	}

	s.printRoots()

	return nil
}

func (s *Session) printRoots() {
	s.o.Println("roots:", cellsString(s.rt.RootCells()))
}

func (s *Session) cmdLink(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: link <from> <to>", errReplUsage)
	}

	from, err := s.parseCell(args[0], false)
	if err != nil {
		return err
	}

	to, err := s.parseCell(args[1], true)
	if err != nil {
		return err
	}

	switch obj := s.rt.Get(from).(type) {
	case runtime.Indirection:
		obj.Target = to
		s.rt.Set(from, obj)
		s.o.Printf("@%d = %s\n", from, obj)
	case runtime.Distribution:
		obj.Elements = append(slices.Clone(obj.Elements), to)
		s.rt.Set(from, obj)
		s.o.Printf("@%d = %s\n", from, obj)
	default:
		return fmt.Errorf("%w: @%d holds %T, want an indirection or distribution", errBadCell, from, obj)
	}

	return nil
}

func (s *Session) cmdRead(args []string) error {
	c, err := s.oneCell("read <cell>", args)
	if err != nil {
		return err
	}

	obj := s.rt.Get(c)
	color := s.rt.Heap().Color(c)

	if obj == nil {
		s.o.Printf("@%d = <empty> (%s)\n", c, color)
	} else {
		s.o.Printf("@%d = %s (%s)\n", c, obj, color)
	}

	return nil
}

func (s *Session) cmdStats() {
	st := s.rt.Heap().Stats()

	s.o.Printf("phase=%s total=%d free=%d scanned=%d\n", st.Phase, st.Total, st.Free, st.Scanned)
	s.o.Printf("epochs=%d collections=%d empty_root_reclaims=%d restarts=%d expansions=%d allocations=%d\n",
		st.Epochs, st.Collections, st.EmptyRootReclaims, st.Restarts, st.Expansions, st.Allocations)
}

func (s *Session) cmdArcs() error {
	arcs, err := s.rt.Heap().Arcs()
	if err != nil {
		return err
	}

	s.o.Printf("free=%d black=%d grey=%d white=%d\n", arcs.Free, arcs.Black, arcs.Grey, arcs.White)

	return nil
}

// cmdCells does not read payloads: a barrier read would move cells while the
// ring is being walked.
func (s *Session) cmdCells() {
	heap := s.rt.Heap()

	for c := range heap.Cells() {
		root := ""
		if s.rt.IsRoot(c) {
			root = " root"
		}

		s.o.Printf("@%d %s%s\n", c, heap.Color(c), root)
	}
}

func (s *Session) cmdCheck() error {
	err := s.rt.Heap().Verify()
	if err != nil {
		return err
	}

	s.o.Println("ok", s.rt.Heap().String())

	return nil
}

func (s *Session) oneCell(usage string, args []string) (treadmill.Cell, error) {
	if len(args) != 1 {
		return treadmill.Nil, fmt.Errorf("%w: %s", errReplUsage, usage)
	}

	return s.parseCell(args[0], false)
}

func (s *Session) parseCells(args []string) ([]treadmill.Cell, error) {
	cells := make([]treadmill.Cell, 0, len(args))

	for _, arg := range args {
		c, err := s.parseCell(arg, true)
		if err != nil {
			return nil, err
		}

		cells = append(cells, c)
	}

	return cells, nil
}

// parseCell accepts "@3", "3" and, if allowNil, "nil". The cell must be
// allocated.
func (s *Session) parseCell(arg string, allowNil bool) (treadmill.Cell, error) {
	if arg == "nil" {
		if !allowNil {
			return treadmill.Nil, fmt.Errorf("%w: nil not allowed here", errBadCell)
		}

		return treadmill.Nil, nil
	}

	n, err := strconv.ParseInt(strings.TrimPrefix(arg, "@"), 10, 32)
	if err != nil {
		return treadmill.Nil, fmt.Errorf("%w: %q", errBadCell, arg)
	}

	if total := s.rt.Heap().Stats().Total; n < 0 || n >= int64(total) {
		return treadmill.Nil, fmt.Errorf("%w: @%d outside heap of %d cells", errBadCell, n, total)
	}

	c := treadmill.Cell(n)

	// Free cells hold no object; reading or rooting one would corrupt the ring.
	if s.rt.Heap().Color(c) == treadmill.Free {
		return treadmill.Nil, fmt.Errorf("%w: @%d is free", errBadCell, c)
	}

	return c, nil
}

func cellsString(cells []treadmill.Cell) string {
	if len(cells) == 0 {
		return "(none)"
	}

	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = fmt.Sprintf("@%d", c)
	}

	return strings.Join(parts, " ")
}

// completeCommand offers repl command names matching the typed prefix.
func completeCommand(line string) []string {
	var out []string

	for _, c := range replCommands {
		if strings.HasPrefix(c.name, strings.ToLower(line)) {
			out = append(out, c.name)
		}
	}

	return out
}
