package cli_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/treadmill/internal/cli"
	"github.com/calvinalkan/treadmill/internal/sim"
)

func Test_Run_Prints_Stats_For_Each_Scenario_When_Invoked(t *testing.T) {
	t.Parallel()

	for _, name := range sim.Names() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := cli.NewCLI(t)
			stdout := c.MustRun("--initial-size", "16", "--expand-size", "8", "run", name,
				"--steps", "200", "--live", "6", "--verify-every", "5")

			cli.AssertContains(t, stdout, "scenario="+name+" steps=200 live=6")
			cli.AssertContains(t, stdout, "arcs free=")
			cli.AssertContains(t, stdout, "collections=")
		})
	}
}

func Test_Run_Writes_JSON_Report_When_Report_Flag_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("--initial-size", "10", "run", "churn", "--steps", "100", "--live", "5", "--report", "out/report.json")

	cli.AssertContains(t, stdout, "report="+filepath.Join(c.Dir, "out", "report.json"))

	var report sim.Report

	require.NoError(t, json.Unmarshal([]byte(c.ReadFile("out/report.json")), &report))

	assert.Equal(t, "churn", report.Scenario)
	assert.Equal(t, 100, report.Steps)
	assert.Equal(t, 5, report.Live)
	assert.Positive(t, report.Stats.Epochs)
	assert.Equal(t, report.Stats.Total, report.Arcs.Free+report.Arcs.Black+report.Arcs.Grey+report.Arcs.White)
}

func Test_Run_Fails_When_Scenario_Missing_Or_Unknown(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	stderr := c.MustFail("run")
	cli.AssertContains(t, stderr, "scenario required (one of churn, list, tree)")

	stderr = c.MustFail("run", "fractal")
	cli.AssertContains(t, stderr, "unknown scenario")
}

func Test_Run_Fails_When_Params_Invalid(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("run", "churn", "--steps", "-3")

	cli.AssertContains(t, stderr, "invalid params")
}

func Test_Run_Warns_When_No_Epoch_Ran(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, code := c.Run("run", "churn", "--steps", "5", "--live", "5")

	assert.Equal(t, 1, code)
	cli.AssertContains(t, stdout, "epochs=0")
	cli.AssertContains(t, stderr, "warning: no collection epoch ran")
}
