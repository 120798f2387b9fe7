// Package runtime is a small host runtime on top of a treadmill heap: typed
// payload objects, a root set, and the tracer that connects the two.
package runtime

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

// Object is a heap payload. Children lists every cell the object references;
// entries may be [treadmill.Nil] for absent references.
type Object interface {
	Children() []treadmill.Cell
	String() string
}

// Integer is a boxed int64.
type Integer struct{ Value int64 }

// Double is a boxed float64.
type Double struct{ Value float64 }

// Percentage is a boxed fraction, printed as a percentage.
type Percentage struct{ Value float64 }

// Boolean is a boxed bool.
type Boolean struct{ Value bool }

// ID is an opaque identifier.
type ID struct{ Value int }

func (Integer) Children() []treadmill.Cell    { return nil }
func (Double) Children() []treadmill.Cell     { return nil }
func (Percentage) Children() []treadmill.Cell { return nil }
func (Boolean) Children() []treadmill.Cell    { return nil }
func (ID) Children() []treadmill.Cell         { return nil }

func (o Integer) String() string    { return strconv.FormatInt(o.Value, 10) }
func (o Double) String() string     { return strconv.FormatFloat(o.Value, 'g', -1, 64) }
func (o Percentage) String() string { return strconv.FormatFloat(o.Value*100, 'g', -1, 64) + "%" }
func (o Boolean) String() string    { return strconv.FormatBool(o.Value) }
func (o ID) String() string         { return "#" + strconv.Itoa(o.Value) }

// Distribution is a sample of N elements of a given type.
type Distribution struct {
	Type     treadmill.Cell
	N        treadmill.Cell
	Elements []treadmill.Cell
}

func (o Distribution) Children() []treadmill.Cell {
	return append([]treadmill.Cell{o.Type, o.N}, o.Elements...)
}

func (o Distribution) String() string {
	return fmt.Sprintf("dist(type=%s n=%s [%s])", cellString(o.Type), cellString(o.N), cellList(o.Elements))
}

// ParamDistribution is a Distribution with M parameters.
type ParamDistribution struct {
	Type       treadmill.Cell
	M          treadmill.Cell
	Parameters []treadmill.Cell
	N          treadmill.Cell
	Elements   []treadmill.Cell
}

func (o ParamDistribution) Children() []treadmill.Cell {
	out := make([]treadmill.Cell, 0, 3+len(o.Parameters)+len(o.Elements))
	out = append(out, o.Type, o.M, o.N)
	out = append(out, o.Parameters...)

	return append(out, o.Elements...)
}

func (o ParamDistribution) String() string {
	return fmt.Sprintf("pdist(type=%s m=%s (%s) n=%s [%s])",
		cellString(o.Type), cellString(o.M), cellList(o.Parameters), cellString(o.N), cellList(o.Elements))
}

// Function is a closure with N parameters. Closure names the code; it is not
// a heap reference.
type Function struct {
	Closure    string
	N          treadmill.Cell
	Parameters []treadmill.Cell
}

func (o Function) Children() []treadmill.Cell {
	return append([]treadmill.Cell{o.N}, o.Parameters...)
}

func (o Function) String() string {
	return fmt.Sprintf("fn %s(n=%s; %s)", o.Closure, cellString(o.N), cellList(o.Parameters))
}

// Indirection points at one other cell, or at nothing.
type Indirection struct{ Target treadmill.Cell }

func (o Indirection) Children() []treadmill.Cell { return []treadmill.Cell{o.Target} }

func (o Indirection) String() string { return "-> " + cellString(o.Target) }

func cellString(c treadmill.Cell) string {
	if c == treadmill.Nil {
		return "nil"
	}

	return "@" + strconv.Itoa(int(c))
}

func cellList(cells []treadmill.Cell) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = cellString(c)
	}

	return strings.Join(parts, " ")
}
