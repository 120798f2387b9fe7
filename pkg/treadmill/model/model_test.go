package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/treadmill/pkg/treadmill"
	"github.com/calvinalkan/treadmill/pkg/treadmill/model"
)

func Test_Reachable_Follows_Edges_From_Roots_Only(t *testing.T) {
	t.Parallel()

	g := model.New()
	for c := range treadmill.Cell(5) {
		g.Allocated(c)
	}

	g.AddRoot(0)
	g.Link(0, 1)
	g.Link(1, 2)
	g.Link(3, 4)

	assert.Equal(t, []treadmill.Cell{0, 1, 2}, g.ReachableSorted())
}

func Test_Reachable_Terminates_On_Cycles(t *testing.T) {
	t.Parallel()

	g := model.New()
	g.Allocated(0)
	g.Allocated(1)
	g.AddRoot(1)
	g.Link(0, 1)
	g.Link(1, 0)

	assert.Equal(t, []treadmill.Cell{0, 1}, g.ReachableSorted())
}

func Test_Allocated_Forgets_Previous_Edges(t *testing.T) {
	t.Parallel()

	g := model.New()
	g.Allocated(0)
	g.Allocated(1)
	g.AddRoot(0)
	g.Link(0, 1)

	g.Allocated(0)

	assert.Equal(t, []treadmill.Cell{0}, g.ReachableSorted())
}

func Test_DropRoot_And_Unlink_Remove_By_Position(t *testing.T) {
	t.Parallel()

	g := model.New()
	for c := range treadmill.Cell(3) {
		g.Allocated(c)
	}

	g.AddRoot(0)
	g.AddRoot(2)
	g.Link(0, 1)
	g.Link(0, 2)

	dropped := g.DropRoot(1)
	g.Unlink(0, 1)

	require.Equal(t, treadmill.Cell(2), dropped)
	assert.Equal(t, []treadmill.Cell{0, 1}, g.ReachableSorted())
}

func Test_Clone_Is_Deep(t *testing.T) {
	t.Parallel()

	g := model.New()
	g.Allocated(0)
	g.Allocated(1)
	g.AddRoot(0)
	g.Link(0, 1)

	clone := g.Clone()
	require.Empty(t, cmp.Diff(g, clone), "clone should be identical to original")

	clone.Link(0, 0)
	clone.AddRoot(1)

	assert.Equal(t, []treadmill.Cell{1}, g.Children(0))
	assert.Equal(t, []treadmill.Cell{0}, g.Roots)
	assert.Nil(t, (*model.Graph)(nil).Clone())
}
