package treadmill

import (
	"iter"
	"log/slog"
)

// Tracer is the host's view of its object graph.
//
// Both methods are pure queries. They are called from inside [Heap.Allocate]
// and must not call back into the heap.
type Tracer[V any] interface {
	// Roots yields every cell the host currently treats as a root.
	// Called once per epoch start. Every yielded cell must be allocated;
	// yielding a Free cell is undefined and is not detected.
	Roots() iter.Seq[Cell]

	// Children yields every cell directly referenced by value, the payload
	// currently stored in cell. The same rule as for Roots applies.
	Children(cell Cell, value V) iter.Seq[Cell]
}

// TracerFuncs adapts two functions to a [Tracer].
type TracerFuncs[V any] struct {
	RootsFunc    func() iter.Seq[Cell]
	ChildrenFunc func(cell Cell, value V) iter.Seq[Cell]
}

// Roots calls RootsFunc.
func (f TracerFuncs[V]) Roots() iter.Seq[Cell] {
	return f.RootsFunc()
}

// Children calls ChildrenFunc, or yields nothing if it is nil.
func (f TracerFuncs[V]) Children(cell Cell, value V) iter.Seq[Cell] {
	if f.ChildrenFunc == nil {
		return func(func(Cell) bool) {}
	}

	return f.ChildrenFunc(cell, value)
}

// Heap is an incremental treadmill collector over cells holding values of
// type V.
//
// Following next from free, the ring reads Free, White, Grey, Black and back
// to free. The cursors mark the boundaries:
//
//	free    first Free cell, the next one Allocate hands out
//	bottom  oldest allocated cell (first White while tracing, first Black otherwise)
//	top     last White cell; set only while White is non-empty during an epoch
//	scan    Grey cell traced next; set only while an epoch is tracing
//
// The Grey arc runs from top.next (or bottom, once White is empty) up to and
// including scan. scan walks towards top, so every cell it leaves behind is
// Black without being moved.
type Heap[V any] struct {
	tracer Tracer[V]
	opts   Options
	log    *slog.Logger

	ring   ring
	marks  []bool
	values []V

	free   Cell
	bottom Cell
	top    Cell
	scan   Cell

	liveMark bool

	numFree  int
	numTotal int
	// numScanned counts cells known to survive the running epoch: traced
	// Grey cells plus cells allocated Black since the epoch began.
	numScanned int

	counters counters
}

type counters struct {
	epochs      uint64
	collections uint64
	rootless    uint64
	restarts    uint64
	expansions  uint64
	allocations uint64
}

// New returns a heap with opts.InitialSize Free cells.
func New[V any](tracer Tracer[V], opts Options) (*Heap[V], error) {
	if tracer == nil {
		return nil, ErrInvalidOptions
	}

	opts = opts.withDefaults()

	err := opts.validate()
	if err != nil {
		return nil, err
	}

	h := &Heap[V]{
		tracer: tracer,
		opts:   opts,
		log:    opts.Logger,
		bottom: Nil,
		top:    Nil,
		scan:   Nil,
	}

	h.free = h.newCells(opts.InitialSize)
	h.numTotal = opts.InitialSize
	h.numFree = opts.InitialSize

	return h, nil
}

// newCells builds n unmarked cells as a ring of their own.
func (h *Heap[V]) newCells(n int) Cell {
	first := h.ring.grow(n)

	var zero V
	for range n {
		h.marks = append(h.marks, !h.liveMark)
		h.values = append(h.values, zero)
	}

	return h.ring.chain(first, n)
}

// Allocate returns a Free cell, colored Black for the running epoch.
//
// It may start an epoch, trace up to ScanStepSize Grey cells, and grow the
// ring. The payload of the returned cell is the zero V until written.
func (h *Heap[V]) Allocate() Cell {
	if !h.tracing() && float64(h.numFree)/float64(h.numTotal) <= h.opts.ScanThreshold {
		h.startScanning()
	}

	if h.tracing() {
		h.scanCycle()
	}

	// Taking the last Free cell would move free onto bottom.
	if h.numFree <= 1 {
		h.expand()
	}

	c := h.free
	h.free = h.ring.next(c)
	h.numFree--
	h.marks[c] = h.liveMark

	var zero V
	h.values[c] = zero

	if h.bottom == Nil {
		h.bottom = c
	}

	if h.tracing() {
		h.numScanned++
	}

	h.counters.allocations++

	return c
}

// Read returns the payload of c. While an epoch is tracing, c is first
// promoted out of White so it survives the epoch.
//
// c must be allocated. Reading a Free cell, such as a handle kept past its
// collection, is undefined and is not detected: the mark token cannot tell
// a reclaimed cell from a White one in O(1).
func (h *Heap[V]) Read(c Cell) V {
	h.check(c)

	if h.tracing() {
		h.markToScan(c)
	}

	return h.values[c]
}

// Write stores v in c.
func (h *Heap[V]) Write(c Cell, v V) {
	h.check(c)
	h.values[c] = v
}

func (h *Heap[V]) check(c Cell) {
	if c < 0 || int(c) >= h.ring.len() {
		fail("cell %d does not belong to this heap", c)
	}
}

func (h *Heap[V]) tracing() bool {
	return h.scan != Nil
}

// startScanning begins an epoch: every allocated cell turns White and the
// roots are promoted Grey.
func (h *Heap[V]) startScanning() {
	if h.top != Nil || h.scan != Nil {
		fail("start scanning: epoch already in progress")
	}

	if h.bottom == Nil {
		return
	}

	h.numScanned = 0
	h.liveMark = !h.liveMark
	h.counters.epochs++

	first := Nil
	top := h.ring.prev(h.free)

	for root := range h.tracer.Roots() {
		h.check(root)

		if first == Nil {
			// Freeze the White arc only once there is something to trace, so
			// a rootless epoch leaves top unset.
			h.top = top
			first = root
		}

		h.markToScan(root)
	}

	if first == Nil {
		h.bottom = Nil
		h.top = Nil
		h.numFree = h.numTotal
		h.counters.rootless++

		h.log.Debug("treadmill: no roots, heap reclaimed", "total", h.numTotal)

		return
	}

	h.scan = first

	h.log.Debug("treadmill: epoch started", "epoch", h.counters.epochs, "free", h.numFree, "total", h.numTotal)
}

// scanCycle traces at most ScanStepSize Grey cells.
func (h *Heap[V]) scanCycle() {
	for range h.opts.ScanStepSize {
		if !h.scanStep() {
			return
		}
	}
}

// scanStep traces the Grey cell at scan and reports whether the epoch is
// still tracing afterwards.
func (h *Heap[V]) scanStep() bool {
	cell := h.scan

	for child := range h.tracer.Children(cell, h.values[cell]) {
		h.check(child)
		h.markToScan(child)
	}

	h.numScanned++

	if h.top != Nil && h.ring.prev(cell) == h.top {
		h.scan = Nil
		h.collect()

		return false
	}

	if cell == h.bottom {
		// Everything allocated was reachable. Start over with fresh roots;
		// tracing the new epoch is left to later allocations.
		h.scan = Nil
		h.counters.restarts++

		h.log.Debug("treadmill: no garbage found, restarting", "epoch", h.counters.epochs)

		h.startScanning()

		return false
	}

	h.scan = h.ring.prev(cell)

	return true
}

// collect turns the White arc into Free by moving bottom past it.
func (h *Heap[V]) collect() {
	if h.scan != Nil {
		fail("collect: epoch still tracing")
	}

	if h.top == Nil {
		fail("collect: no white cells")
	}

	h.bottom = h.ring.next(h.top)
	h.top = Nil
	h.numFree = h.numTotal - h.numScanned
	h.counters.collections++

	h.log.Debug("treadmill: collected", "epoch", h.counters.epochs, "free", h.numFree, "survivors", h.numScanned)
}

// markToScan promotes a White cell to Grey. Marked cells are left alone.
func (h *Heap[V]) markToScan(c Cell) {
	if h.bottom == Nil {
		fail("mark: no cell has been allocated")
	}

	if h.marks[c] == h.liveMark {
		return
	}

	if h.top == Nil {
		fail("mark: cell %d is unmarked but the white arc is empty", c)
	}

	h.marks[c] = h.liveMark

	switch {
	case c == h.bottom && c == h.top:
		// Sole White cell; it already sits next to Grey.
		h.top = Nil
	case c == h.bottom:
		h.bottom = h.ring.next(c)
		h.ring.remove(c)
		h.ring.insertAfter(c, h.top)
	case c == h.top:
		h.top = h.ring.prev(c)
	default:
		h.ring.remove(c)
		h.ring.insertAfter(c, h.top)
	}
}

// expand adds ExpandSize Free cells right after free.
func (h *Heap[V]) expand() {
	n := h.opts.ExpandSize

	first := h.newCells(n)
	h.ring.splice(first, h.free)

	h.numTotal += n
	h.numFree += n
	h.counters.expansions++

	h.log.Debug("treadmill: expanded", "added", n, "total", h.numTotal)
}
