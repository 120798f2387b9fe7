package runtime_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/treadmill/internal/runtime"
	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

func newRuntime(t *testing.T, opts treadmill.Options) *runtime.Runtime {
	t.Helper()

	rt, err := runtime.New(opts)
	require.NoError(t, err)

	return rt
}

func Test_Object_Children_Lists_References_In_Order(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		obj  runtime.Object
		want []treadmill.Cell
	}{
		{"Integer", runtime.Integer{Value: 1}, nil},
		{"Double", runtime.Double{Value: 1.5}, nil},
		{"Percentage", runtime.Percentage{Value: 0.1}, nil},
		{"Boolean", runtime.Boolean{Value: true}, nil},
		{"ID", runtime.ID{Value: 3}, nil},
		{"Distribution", runtime.Distribution{Type: 1, N: 2, Elements: []treadmill.Cell{3, 4}}, []treadmill.Cell{1, 2, 3, 4}},
		{"ParamDistribution", runtime.ParamDistribution{
			Type: 1, M: 2, Parameters: []treadmill.Cell{5}, N: 3, Elements: []treadmill.Cell{6, 7},
		}, []treadmill.Cell{1, 2, 3, 5, 6, 7}},
		{"Function", runtime.Function{Closure: "f", N: 1, Parameters: []treadmill.Cell{2}}, []treadmill.Cell{1, 2}},
		{"Indirection", runtime.Indirection{Target: 9}, []treadmill.Cell{9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.obj.Children())
			assert.NotEmpty(t, tt.obj.String())
		})
	}
}

func Test_Object_String_Formats(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "42", runtime.Integer{Value: 42}.String())
	assert.Equal(t, "25%", runtime.Percentage{Value: 0.25}.String())
	assert.Equal(t, "-> nil", runtime.Indirection{Target: treadmill.Nil}.String())
	assert.Equal(t, "-> @3", runtime.Indirection{Target: 3}.String())
	assert.Equal(t, "fn add(n=@1; @2 @3)", runtime.Function{Closure: "add", N: 1, Parameters: []treadmill.Cell{2, 3}}.String())
}

func Test_Children_Skips_Nil_And_Unwritten_Payloads(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t, treadmill.Options{InitialSize: 4})

	assert.Empty(t, slices.Collect(rt.Children(0, nil)))
	assert.Equal(t, []treadmill.Cell{2}, slices.Collect(rt.Children(0, runtime.Distribution{
		Type: treadmill.Nil, N: 2, Elements: []treadmill.Cell{treadmill.Nil},
	})))
}

func Test_Alloc_Stores_Object_And_Get_Returns_It(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t, treadmill.Options{InitialSize: 4})

	cell := rt.Alloc(runtime.Integer{Value: 123})

	assert.Equal(t, runtime.Integer{Value: 123}, rt.Get(cell))
}

func Test_RemoveRoot_Removes_Latest_Occurrence(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t, treadmill.Options{InitialSize: 8})

	a := rt.Alloc(runtime.Integer{Value: 1})
	b := rt.Alloc(runtime.Integer{Value: 2})

	rt.AddRoot(a)
	rt.AddRoot(b)
	rt.AddRoot(a)

	require.NoError(t, rt.RemoveRoot(a))
	assert.Equal(t, []treadmill.Cell{a, b}, rt.RootCells())
	assert.True(t, rt.IsRoot(a))

	require.ErrorIs(t, rt.RemoveRoot(treadmill.Cell(7)), runtime.ErrNotRooted)

	first, ok := rt.PopRoot()
	require.True(t, ok)
	assert.Equal(t, a, first)

	rt.ClearRoots()
	assert.Empty(t, rt.RootCells())

	_, ok = rt.PopRoot()
	assert.False(t, ok)
}

func Test_Linked_List_Survives_Collection(t *testing.T) {
	t.Parallel()

	rt := newRuntime(t, treadmill.Options{InitialSize: 4, ExpandSize: 4, ScanStepSize: 2, ScanThreshold: 0.5})

	head := rt.Alloc(runtime.Indirection{Target: treadmill.Nil})
	rt.AddRoot(head)

	for range 50 {
		next := rt.Alloc(runtime.Indirection{Target: head})
		rt.AddRoot(next)
		require.NoError(t, rt.RemoveRoot(head))

		head = next
	}

	// Churn garbage so several epochs run over the list.
	for i := range 200 {
		rt.Alloc(runtime.Integer{Value: int64(i)})
	}

	require.NoError(t, rt.Heap().Verify())

	length := 0
	for c := head; c != treadmill.Nil; length++ {
		obj, ok := rt.Get(c).(runtime.Indirection)
		require.True(t, ok, "cell %d lost its payload", c)

		c = obj.Target
	}

	assert.Equal(t, 51, length)
	assert.Positive(t, rt.Heap().Stats().Collections)
}
