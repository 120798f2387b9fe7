package treadmill

import (
	"fmt"
	"iter"
)

// Phase is the collector's position in its epoch state machine.
type Phase int

const (
	// Idle means no epoch is running; Allocate only hands out cells.
	Idle Phase = iota
	// Tracing means an epoch is running and Allocate traces Grey cells.
	Tracing
)

func (p Phase) String() string {
	if p == Tracing {
		return "tracing"
	}

	return "idle"
}

// Color is the arc a cell currently belongs to.
type Color int

// Colors in ring order, following prev from free.
const (
	Free Color = iota
	Black
	Grey
	White
)

func (c Color) String() string {
	switch c {
	case Free:
		return "free"
	case Black:
		return "black"
	case Grey:
		return "grey"
	case White:
		return "white"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// Stats is a snapshot of heap bookkeeping.
type Stats struct {
	Phase   Phase `json:"-"`
	Total   int   `json:"total"`
	Free    int   `json:"free"`
	Scanned int   `json:"scanned"`

	Epochs            uint64 `json:"epochs"`
	Collections       uint64 `json:"collections"`
	EmptyRootReclaims uint64 `json:"empty_root_reclaims"`
	Restarts          uint64 `json:"restarts"`
	Expansions        uint64 `json:"expansions"`
	Allocations       uint64 `json:"allocations"`
}

// Stats returns the current counters. O(1).
func (h *Heap[V]) Stats() Stats {
	phase := Idle
	if h.tracing() {
		phase = Tracing
	}

	return Stats{
		Phase:             phase,
		Total:             h.numTotal,
		Free:              h.numFree,
		Scanned:           h.numScanned,
		Epochs:            h.counters.epochs,
		Collections:       h.counters.collections,
		EmptyRootReclaims: h.counters.rootless,
		Restarts:          h.counters.restarts,
		Expansions:        h.counters.expansions,
		Allocations:       h.counters.allocations,
	}
}

// Arcs holds the length of each colored arc.
type Arcs struct {
	Free  int `json:"free"`
	Black int `json:"black"`
	Grey  int `json:"grey"`
	White int `json:"white"`
}

// Cells yields every cell of the ring in next order, starting at the free
// cursor.
func (h *Heap[V]) Cells() iter.Seq[Cell] {
	return h.ring.all(h.free)
}

// Arcs walks the ring and measures each arc. O(total).
func (h *Heap[V]) Arcs() (Arcs, error) {
	var arcs Arcs

	err := h.walk(func(_ Cell, color Color) error {
		switch color {
		case Free:
			arcs.Free++
		case Black:
			arcs.Black++
		case Grey:
			arcs.Grey++
		case White:
			arcs.White++
		}

		return nil
	})

	return arcs, err
}

// Color reports which arc c is on. O(total); meant for diagnostics.
func (h *Heap[V]) Color(c Cell) Color {
	h.check(c)

	found := Free

	err := h.walk(func(cell Cell, color Color) error {
		if cell == c {
			found = color
		}

		return nil
	})
	if err != nil {
		fail("color: %v", err)
	}

	return found
}

// Verify checks ring closure, the cursor partition, mark tokens and the free
// counter. It returns an error wrapping [ErrCorrupt] on the first violation.
func (h *Heap[V]) Verify() error {
	err := h.verifyClosure()
	if err != nil {
		return err
	}

	arcs, err := h.Arcs()
	if err != nil {
		return err
	}

	if arcs.Free != h.numFree {
		return fmt.Errorf("%w: free arc has %d cells, counter says %d", ErrCorrupt, arcs.Free, h.numFree)
	}

	if arcs.Free < 1 {
		return fmt.Errorf("%w: free arc is empty", ErrCorrupt)
	}

	if h.top != Nil && arcs.White == 0 {
		return fmt.Errorf("%w: top set with empty white arc", ErrCorrupt)
	}

	return nil
}

// verifyClosure checks that next and prev both return to the start after
// exactly numTotal hops, and that every arena slot is on the ring.
func (h *Heap[V]) verifyClosure() error {
	if h.ring.len() != h.numTotal {
		return fmt.Errorf("%w: arena holds %d cells, total is %d", ErrCorrupt, h.ring.len(), h.numTotal)
	}

	if h.free < 0 || int(h.free) >= h.ring.len() || !h.ring.linked(h.free) {
		return fmt.Errorf("%w: free cursor %d is not on the ring", ErrCorrupt, h.free)
	}

	for _, step := range []func(Cell) Cell{h.ring.next, h.ring.prev} {
		c := h.free
		for i := range h.numTotal {
			c = step(c)
			if c == Nil {
				return fmt.Errorf("%w: detached cell reached after %d hops", ErrCorrupt, i)
			}

			if c == h.free && i != h.numTotal-1 {
				return fmt.Errorf("%w: ring closes after %d hops, want %d", ErrCorrupt, i+1, h.numTotal)
			}
		}

		if c != h.free {
			return fmt.Errorf("%w: ring does not close after %d hops", ErrCorrupt, h.numTotal)
		}
	}

	for c := range h.numTotal {
		if n := h.ring.nodes[c]; h.ring.nodes[n.next].prev != Cell(c) {
			return fmt.Errorf("%w: cell %d: next.prev mismatch", ErrCorrupt, c)
		}
	}

	return nil
}

// walk visits every cell in next order from free together with its color,
// derived from the cursors: Free up to bottom, White through top, Grey through
// scan, Black back to free. Marks are checked against the derived color.
func (h *Heap[V]) walk(visit func(Cell, Color) error) error {
	color := Free
	c := h.free

	for range h.numTotal {
		// Arc boundaries are entered, never crossed backwards.
		if color == Free && c == h.bottom {
			switch {
			case h.top != Nil:
				color = White
			case h.scan != Nil:
				color = Grey
			default:
				color = Black
			}
		}

		marked := h.marks[c] == h.liveMark
		if (color == White && marked) || ((color == Grey || color == Black) && !marked) {
			return fmt.Errorf("%w: cell %d is %s with mark %v (live mark %v)", ErrCorrupt, c, color, h.marks[c], h.liveMark)
		}

		err := visit(c, color)
		if err != nil {
			return err
		}

		switch {
		case color == White && c == h.top:
			color = Grey
			if h.scan == Nil {
				color = Black
			}
		case color == Grey && c == h.scan:
			color = Black
		}

		c = h.ring.next(c)
	}

	if c != h.free {
		return fmt.Errorf("%w: walk did not return to free", ErrCorrupt)
	}

	switch {
	case color == Black:
	case color == Free && h.bottom == Nil && h.top == Nil && h.scan == Nil:
	default:
		return fmt.Errorf("%w: walk ended in the %s arc; cursors do not partition the ring", ErrCorrupt, color)
	}

	return nil
}

// String renders phase, counters and arc lengths on one line.
func (h *Heap[V]) String() string {
	arcs, err := h.Arcs()
	if err != nil {
		return fmt.Sprintf("Heap{%s total=%d free=%d corrupt: %v}", h.Stats().Phase, h.numTotal, h.numFree, err)
	}

	return fmt.Sprintf("Heap{%s total=%d free=%d black=%d grey=%d white=%d epochs=%d}",
		h.Stats().Phase, h.numTotal, arcs.Free, arcs.Black, arcs.Grey, arcs.White, h.counters.epochs)
}
