package sim_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/treadmill/internal/sim"
	"github.com/calvinalkan/treadmill/internal/testutil"
	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

var heapProfiles = []struct {
	name string
	opts treadmill.Options
}{
	{"Tiny", treadmill.Options{InitialSize: 1, ExpandSize: 1, ScanStepSize: 1, ScanThreshold: 1}},
	{"Small", treadmill.Options{InitialSize: 10, ExpandSize: 10, ScanStepSize: 5, ScanThreshold: 0.5}},
	{"Defaults", treadmill.Options{}},
}

func Test_Run_All_Scenarios_Without_Live_Reuse(t *testing.T) {
	t.Parallel()

	for _, name := range sim.Names() {
		for _, profile := range heapProfiles {
			t.Run(fmt.Sprintf("%s/%s", name, profile.name), func(t *testing.T) {
				t.Parallel()

				params := sim.Params{Steps: 300, Live: 12, VerifyEvery: 10, Seed: 7}

				report, err := sim.Run(context.Background(), name, profile.opts, params, nil)
				require.NoError(t, err)

				assert.Equal(t, name, report.Scenario)
				assert.Equal(t, 300, report.Steps)
				assert.Positive(t, report.Stats.Epochs)
				assert.Equal(t, report.Stats.Total, report.Arcs.Free+report.Arcs.Black+report.Arcs.Grey+report.Arcs.White)
				assert.GreaterOrEqual(t, report.MaxTotal, report.Stats.Total)
			})
		}
	}
}

func Test_Run_Churn_Reclaims_So_Heap_Stays_Small(t *testing.T) {
	t.Parallel()

	report, err := sim.Run(context.Background(), "churn",
		treadmill.Options{InitialSize: 10, ExpandSize: 10, ScanStepSize: 5},
		sim.Params{Steps: 2000, Live: 100}, nil)
	require.NoError(t, err)

	assert.Less(t, report.MaxTotal, 2000, "heap should reuse garbage instead of growing per allocation")
	assert.Positive(t, report.Stats.Collections)
}

func Test_Run_Applies_Defaults(t *testing.T) {
	t.Parallel()

	report, err := sim.Run(context.Background(), "churn", treadmill.Options{}, sim.Params{}, nil)
	require.NoError(t, err)

	assert.Equal(t, sim.DefaultSteps, report.Steps)
	assert.Equal(t, sim.DefaultLive, report.Live)
}

func Test_Run_Rejects_Unknown_Scenario_And_Bad_Params(t *testing.T) {
	t.Parallel()

	_, err := sim.Run(context.Background(), "nope", treadmill.Options{}, sim.Params{}, nil)
	require.ErrorIs(t, err, sim.ErrUnknownScenario)

	_, err = sim.Run(context.Background(), "churn", treadmill.Options{}, sim.Params{Steps: -1}, nil)
	require.ErrorIs(t, err, sim.ErrInvalidParams)

	_, err = sim.Run(context.Background(), "churn", treadmill.Options{ScanThreshold: 2}, sim.Params{}, nil)
	require.ErrorIs(t, err, treadmill.ErrInvalidOptions)
}

func Test_Run_Stops_When_Context_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := sim.Run(ctx, "list", treadmill.Options{}, sim.Params{Steps: 50, Live: 5}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, report.Steps)
}

func Test_Names_Are_Sorted(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"churn", "list", "tree"}, sim.Names())
}

func FuzzRun_Scenarios(f *testing.F) {
	f.Add([]byte{0, 0, 0, 5, 3, 1})
	f.Add([]byte{3, 17, 1, 40, 7, 9})
	f.Add([]byte{34, 255, 2, 9, 1, 200})

	f.Fuzz(func(t *testing.T, data []byte) {
		stream := testutil.NewByteStream(data)
		opts := stream.NextHeapOptions()

		names := sim.Names()
		name := names[stream.NextInt(len(names))]

		params := sim.Params{
			Steps:       stream.NextInt(64) + 1,
			Live:        stream.NextInt(8) + 1,
			VerifyEvery: 1,
			Seed:        uint64(stream.NextByte()),
		}

		_, err := sim.Run(context.Background(), name, opts, params, nil)
		require.NoError(t, err, "scenario %s opts %+v params %+v", name, opts, params)
	})
}
