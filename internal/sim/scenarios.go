package sim

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/calvinalkan/treadmill/internal/runtime"
	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

// runChurn keeps a FIFO of up to Live rooted integers. Once full, every step
// drops the oldest root before allocating, so the heap sees a steady stream
// of garbage with a fixed-size live set.
func runChurn(ctx context.Context, w *workload) error {
	held := w.rt.IsRoot

	for range w.params.Steps {
		if len(w.rt.RootCells()) >= w.params.Live {
			w.rt.PopRoot()
		}

		cell, err := w.alloc(runtime.Integer{Value: int64(w.steps)}, held)
		if err != nil {
			return err
		}

		w.rt.AddRoot(cell)

		if err := w.endStep(ctx); err != nil {
			return err
		}
	}

	return checkIntegers(w)
}

// checkIntegers reads every root back; churn roots hold the step that made them.
func checkIntegers(w *workload) error {
	seen := make(map[int64]bool)

	for _, cell := range w.rt.RootCells() {
		obj, ok := w.rt.Get(cell).(runtime.Integer)
		if !ok || seen[obj.Value] {
			return fmt.Errorf("%w: root %d holds %v", ErrLost, cell, w.rt.Get(cell))
		}

		seen[obj.Value] = true
	}

	return nil
}

// runList builds a singly linked list of Live+1 indirections rooted at its
// head, checks it end to end, and drops it. Each step is one whole list.
func runList(ctx context.Context, w *workload) error {
	for range w.params.Steps {
		w.rt.ClearRoots()

		members := make(map[treadmill.Cell]bool, w.params.Live+1)
		held := func(c treadmill.Cell) bool { return members[c] }

		head, err := w.alloc(runtime.Indirection{Target: treadmill.Nil}, held)
		if err != nil {
			return err
		}

		w.rt.AddRoot(head)
		members[head] = true

		for range w.params.Live {
			next, err := w.alloc(runtime.Indirection{Target: head}, held)
			if err != nil {
				return err
			}

			w.rt.AddRoot(next)

			err = w.rt.RemoveRoot(head)
			if err != nil {
				return err
			}

			head = next
			members[head] = true
		}

		err = checkList(w, head, w.params.Live+1)
		if err != nil {
			return err
		}

		if err := w.endStep(ctx); err != nil {
			return err
		}
	}

	return nil
}

func checkList(w *workload, head treadmill.Cell, want int) error {
	length := 0

	for c := head; c != treadmill.Nil; length++ {
		if length > want {
			return fmt.Errorf("%w: list longer than %d, cycle through cell %d", ErrLost, want, c)
		}

		obj, ok := w.rt.Get(c).(runtime.Indirection)
		if !ok {
			return fmt.Errorf("%w: list cell %d holds %v", ErrLost, c, w.rt.Get(c))
		}

		c = obj.Target
	}

	if length != want {
		return fmt.Errorf("%w: list has %d cells, want %d", ErrLost, length, want)
	}

	return nil
}

const treeFanout = 4

// subtree is the workload's record of one Distribution node and its leaves.
type subtree struct {
	node   treadmill.Cell
	leaves []treadmill.Cell
	base   int64
}

// runTree keeps one rooted Distribution whose Live elements are subtrees of
// integer leaves. Every step replaces a random subtree, turning the old one
// into garbage, then occasionally checks every leaf still holds its value.
func runTree(ctx context.Context, w *workload) error {
	rng := rand.New(rand.NewPCG(w.params.Seed, w.params.Seed^0x9e3779b97f4a7c15))

	live := make(map[treadmill.Cell]bool)
	held := func(c treadmill.Cell) bool { return live[c] }

	root, err := w.alloc(runtime.Distribution{Type: treadmill.Nil, N: treadmill.Nil}, held)
	if err != nil {
		return err
	}

	w.rt.AddRoot(root)
	live[root] = true

	slots := make([]subtree, w.params.Live)
	elements := make([]treadmill.Cell, w.params.Live)

	for i := range slots {
		elements[i] = treadmill.Nil
	}

	swap := func(i int, base int64) error {
		st, err := buildSubtree(w, held, live, base)
		if err != nil {
			return err
		}

		elements[i] = st.node
		w.rt.Set(root, runtime.Distribution{Type: treadmill.Nil, N: treadmill.Nil, Elements: append([]treadmill.Cell(nil), elements...)})

		err = w.rt.RemoveRoot(st.node)
		if err != nil {
			return err
		}

		old := slots[i]
		if old.node != treadmill.Nil && old.leaves != nil {
			delete(live, old.node)

			for _, leaf := range old.leaves {
				delete(live, leaf)
			}
		}

		slots[i] = st

		return nil
	}

	for i := range slots {
		slots[i] = subtree{node: treadmill.Nil}

		if err := swap(i, int64(i)*treeFanout); err != nil {
			return err
		}
	}

	for step := range w.params.Steps {
		i := rng.IntN(len(slots))

		if err := swap(i, int64(len(slots)+step)*treeFanout); err != nil {
			return err
		}

		if step%16 == 0 {
			if err := checkTree(w, root, slots); err != nil {
				return err
			}
		}

		if err := w.endStep(ctx); err != nil {
			return err
		}
	}

	return checkTree(w, root, slots)
}

// buildSubtree allocates treeFanout leaves and the node referencing them. The
// node is left rooted; the caller unroots it once it is linked into the tree.
func buildSubtree(w *workload, held func(treadmill.Cell) bool, live map[treadmill.Cell]bool, base int64) (subtree, error) {
	st := subtree{node: treadmill.Nil, base: base}

	for j := range treeFanout {
		leaf, err := w.alloc(runtime.Integer{Value: base + int64(j)}, held)
		if err != nil {
			return subtree{}, err
		}

		// Rooted until the node references it.
		w.rt.AddRoot(leaf)
		live[leaf] = true
		st.leaves = append(st.leaves, leaf)
	}

	node, err := w.alloc(runtime.Distribution{Type: treadmill.Nil, N: treadmill.Nil, Elements: st.leaves}, held)
	if err != nil {
		return subtree{}, err
	}

	w.rt.AddRoot(node)
	live[node] = true
	st.node = node

	for _, leaf := range st.leaves {
		err := w.rt.RemoveRoot(leaf)
		if err != nil {
			return subtree{}, err
		}
	}

	return st, nil
}

func checkTree(w *workload, root treadmill.Cell, slots []subtree) error {
	top, ok := w.rt.Get(root).(runtime.Distribution)
	if !ok || len(top.Elements) != len(slots) {
		return fmt.Errorf("%w: tree root %d holds %v", ErrLost, root, w.rt.Get(root))
	}

	for i, st := range slots {
		if top.Elements[i] != st.node {
			return fmt.Errorf("%w: slot %d points at %d, want %d", ErrLost, i, top.Elements[i], st.node)
		}

		node, ok := w.rt.Get(st.node).(runtime.Distribution)
		if !ok || len(node.Elements) != treeFanout {
			return fmt.Errorf("%w: subtree %d holds %v", ErrLost, st.node, w.rt.Get(st.node))
		}

		for j, leaf := range node.Elements {
			v, ok := w.rt.Get(leaf).(runtime.Integer)
			if !ok || v.Value != st.base+int64(j) {
				return fmt.Errorf("%w: leaf %d of subtree %d holds %v, want %d", ErrLost, leaf, st.node, w.rt.Get(leaf), st.base+int64(j))
			}
		}
	}

	return nil
}
