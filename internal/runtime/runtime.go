package runtime

import (
	"errors"
	"iter"
	"slices"

	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

// ErrNotRooted is returned by RemoveRoot for a cell that is not in the root set.
var ErrNotRooted = errors.New("runtime: cell is not a root")

// Runtime owns a heap of [Object] payloads and the root set the collector
// traces from.
//
// Every handle the runtime hands out is either a root or reachable from one.
// A handle held only in a Go variable across an Alloc may be reclaimed.
type Runtime struct {
	heap  *treadmill.Heap[Object]
	roots []treadmill.Cell
}

// New returns a runtime over a fresh heap configured by opts.
func New(opts treadmill.Options) (*Runtime, error) {
	r := &Runtime{}

	heap, err := treadmill.New[Object](r, opts)
	if err != nil {
		return nil, err
	}

	r.heap = heap

	return r, nil
}

// Heap returns the underlying heap, for stats and diagnostics.
func (r *Runtime) Heap() *treadmill.Heap[Object] {
	return r.heap
}

// Roots implements [treadmill.Tracer].
func (r *Runtime) Roots() iter.Seq[treadmill.Cell] {
	return slices.Values(r.roots)
}

// Children implements [treadmill.Tracer]. Nil references are skipped; a cell
// whose payload was never written has no children.
func (*Runtime) Children(_ treadmill.Cell, obj Object) iter.Seq[treadmill.Cell] {
	return func(yield func(treadmill.Cell) bool) {
		if obj == nil {
			return
		}

		for _, c := range obj.Children() {
			if c == treadmill.Nil {
				continue
			}

			if !yield(c) {
				return
			}
		}
	}
}

// Alloc allocates a cell holding obj and returns it.
//
// The cells obj references must be reachable when Alloc is called. They pass
// through the read barrier after allocation, so the new (Black) cell never
// points at a White one.
func (r *Runtime) Alloc(obj Object) treadmill.Cell {
	cell := r.heap.Allocate()
	r.Set(cell, obj)

	return cell
}

// Get returns the payload of cell through the read barrier.
func (r *Runtime) Get(cell treadmill.Cell) Object {
	return r.heap.Read(cell)
}

// Set replaces the payload of cell. Every cell obj references is read first.
func (r *Runtime) Set(cell treadmill.Cell, obj Object) {
	if obj != nil {
		for _, c := range obj.Children() {
			if c != treadmill.Nil {
				r.heap.Read(c)
			}
		}
	}

	r.heap.Write(cell, obj)
}

// AddRoot adds cell to the root set. The cell is read first so an epoch in
// progress keeps it.
func (r *Runtime) AddRoot(cell treadmill.Cell) {
	r.heap.Read(cell)
	r.roots = append(r.roots, cell)
}

// RemoveRoot removes the most recent occurrence of cell from the root set.
func (r *Runtime) RemoveRoot(cell treadmill.Cell) error {
	for i := len(r.roots) - 1; i >= 0; i-- {
		if r.roots[i] == cell {
			r.roots = slices.Delete(r.roots, i, i+1)

			return nil
		}
	}

	return ErrNotRooted
}

// PopRoot removes and returns the oldest root.
func (r *Runtime) PopRoot() (treadmill.Cell, bool) {
	if len(r.roots) == 0 {
		return treadmill.Nil, false
	}

	cell := r.roots[0]
	r.roots = slices.Delete(r.roots, 0, 1)

	return cell, true
}

// ClearRoots empties the root set.
func (r *Runtime) ClearRoots() {
	r.roots = r.roots[:0]
}

// RootCells returns a copy of the root set in insertion order.
func (r *Runtime) RootCells() []treadmill.Cell {
	return slices.Clone(r.roots)
}

// IsRoot reports whether cell is in the root set.
func (r *Runtime) IsRoot(cell treadmill.Cell) bool {
	return slices.Contains(r.roots, cell)
}
