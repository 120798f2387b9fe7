package treadmill

import (
	"iter"
	"math"
)

// Cell is a handle to one heap cell. Handles are stable arena indices: a cell
// never moves and its handle stays valid for the lifetime of the [Heap].
type Cell int32

// Nil is the unset cell handle.
const Nil Cell = -1

const maxCells = math.MaxInt32

// links holds the two ring pointers of one cell.
type links struct {
	prev Cell
	next Cell
}

// ring is an arena of circular doubly-linked list nodes addressed by [Cell].
//
// The arena only grows. A node with Nil links is detached; every other node
// belongs to exactly one ring.
type ring struct {
	nodes []links
}

// grow appends n detached nodes and returns the handle of the first.
func (r *ring) grow(n int) Cell {
	if len(r.nodes)+n > maxCells {
		fail("arena cannot hold %d more cells", n)
	}

	first := Cell(len(r.nodes))
	for range n {
		r.nodes = append(r.nodes, links{prev: Nil, next: Nil})
	}

	return first
}

func (r *ring) len() int {
	return len(r.nodes)
}

func (r *ring) next(c Cell) Cell {
	return r.nodes[c].next
}

func (r *ring) prev(c Cell) Cell {
	return r.nodes[c].prev
}

// linked reports whether c is part of a ring.
func (r *ring) linked(c Cell) bool {
	n := r.nodes[c]

	return n.next != Nil && n.prev != Nil
}

// initialize makes c a ring of one.
func (r *ring) initialize(c Cell) {
	if r.linked(c) {
		fail("initialize: cell %d is already linked", c)
	}

	r.nodes[c] = links{prev: c, next: c}
}

// insertBefore splices c into right's ring, immediately before right.
func (r *ring) insertBefore(c, right Cell) {
	r.insertBetween(c, r.prev(right), right)
}

// insertAfter splices c into left's ring, immediately after left.
func (r *ring) insertAfter(c, left Cell) {
	r.insertBetween(c, left, r.next(left))
}

func (r *ring) insertBetween(c, left, right Cell) {
	if left == Nil || right == Nil || r.nodes[left].next != right || r.nodes[right].prev != left {
		fail("insert: cells %d and %d are not adjacent", left, right)
	}

	if r.linked(c) {
		fail("insert: cell %d is already linked", c)
	}

	r.nodes[left].next = c
	r.nodes[right].prev = c
	r.nodes[c] = links{prev: left, next: right}
}

// remove splices c out of its ring and leaves it detached.
func (r *ring) remove(c Cell) {
	if !r.linked(c) {
		fail("remove: cell %d is not linked", c)
	}

	left, right := r.prev(c), r.next(c)
	r.nodes[left].next = right
	r.nodes[right].prev = left
	r.nodes[c] = links{prev: Nil, next: Nil}
}

// splice inserts the ring containing first (and ending at first's
// predecessor) into anchor's ring, immediately after anchor.
func (r *ring) splice(first, anchor Cell) {
	if !r.linked(first) || !r.linked(anchor) {
		fail("splice: cells %d and %d must both be linked", first, anchor)
	}

	last := r.prev(first)
	right := r.next(anchor)

	r.nodes[anchor].next = first
	r.nodes[first].prev = anchor
	r.nodes[last].next = right
	r.nodes[right].prev = last
}

// all yields every cell of start's ring in next order, beginning with start
// and stopping before start recurs. The sequence is restartable.
func (r *ring) all(start Cell) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		if !r.linked(start) {
			fail("iterate: cell %d is not linked", start)
		}

		c := start
		for {
			if !yield(c) {
				return
			}

			c = r.next(c)
			if c == start {
				return
			}
		}
	}
}

// chain links the detached cells [first, first+n) into one ring in index
// order and returns first.
func (r *ring) chain(first Cell, n int) Cell {
	r.initialize(first)

	for i := 1; i < n; i++ {
		r.insertBefore(first+Cell(i), first)
	}

	return first
}
