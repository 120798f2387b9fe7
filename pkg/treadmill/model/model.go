// Package model provides a deliberately simple, in-memory model of a host's
// object graph, used as the oracle for treadmill property tests.
//
// The model knows nothing about colors, arcs or epochs. It only answers the
// question the collector must never get wrong: which cells can the host
// still reach from its roots right now.
package model

import (
	"maps"
	"slices"

	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

// Graph is the host's references: an ordered root list and, per cell, the
// ordered list of cells its payload points to.
type Graph struct {
	Roots []treadmill.Cell
	Edges map[treadmill.Cell][]treadmill.Cell
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{Edges: map[treadmill.Cell][]treadmill.Cell{}}
}

// Clone makes a deep copy so metamorphic tests can fork the same state.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}

	clone := &Graph{
		Roots: slices.Clone(g.Roots),
		Edges: make(map[treadmill.Cell][]treadmill.Cell, len(g.Edges)),
	}

	for cell, children := range g.Edges {
		clone.Edges[cell] = slices.Clone(children)
	}

	return clone
}

// Allocated records a freshly allocated cell. Whatever the cell pointed to in
// a previous life is forgotten.
func (g *Graph) Allocated(cell treadmill.Cell) {
	g.Edges[cell] = nil
}

// AddRoot appends cell to the root list. A cell may be rooted more than once.
func (g *Graph) AddRoot(cell treadmill.Cell) {
	g.Roots = append(g.Roots, cell)
}

// DropRoot removes the root at position i.
func (g *Graph) DropRoot(i int) treadmill.Cell {
	cell := g.Roots[i]
	g.Roots = slices.Delete(g.Roots, i, i+1)

	return cell
}

// Link appends an edge from -> to.
func (g *Graph) Link(from, to treadmill.Cell) {
	g.Edges[from] = append(g.Edges[from], to)
}

// Unlink removes the edge at position i of from's children.
func (g *Graph) Unlink(from treadmill.Cell, i int) {
	g.Edges[from] = slices.Delete(g.Edges[from], i, i+1)
}

// Children returns the cells referenced by cell.
func (g *Graph) Children(cell treadmill.Cell) []treadmill.Cell {
	return g.Edges[cell]
}

// Reachable returns every cell reachable from the roots.
func (g *Graph) Reachable() map[treadmill.Cell]bool {
	seen := make(map[treadmill.Cell]bool, len(g.Edges))
	stack := slices.Clone(g.Roots)

	for len(stack) > 0 {
		cell := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if seen[cell] {
			continue
		}

		seen[cell] = true

		stack = append(stack, g.Edges[cell]...)
	}

	return seen
}

// ReachableSorted returns Reachable as a sorted slice, for diffs.
func (g *Graph) ReachableSorted() []treadmill.Cell {
	return slices.Sorted(maps.Keys(g.Reachable()))
}
