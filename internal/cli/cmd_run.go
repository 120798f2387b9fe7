package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/treadmill/internal/config"
	"github.com/calvinalkan/treadmill/internal/sim"
)

var errScenarioRequired = errors.New("scenario required")

// RunCmd returns the run command.
func RunCmd(cfg *config.Config, log *slog.Logger) *Command {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.Int("steps", sim.DefaultSteps, "Workload steps to run")
	fs.Int("live", sim.DefaultLive, "Size of the live set")
	fs.Int("verify-every", 0, "Verify heap invariants every `n` steps (0: only at the end)")
	fs.Uint64("seed", 1, "Seed for scenarios that make random choices")
	fs.String("report", "", "Write a JSON run report to `path`")

	return &Command{
		Flags: fs,
		Usage: "run <scenario> [flags]",
		Short: "Run a simulated workload (" + strings.Join(sim.Names(), ", ") + ")",
		Long: `Run a synthetic workload against a fresh heap and print heap statistics.

Scenarios:
  churn  FIFO of rooted integers; the oldest root is dropped every step
  list   build and drop a linked list of indirections every step
  tree   swap random subtrees of a rooted distribution every step

The run fails if the collector hands out a cell the workload still holds,
if a live payload changes, or if heap invariants break.`,
		Examples: []string{
			"run churn --steps 5000 --live 200",
			"--initial-size 16 --scan-step-size 2 run tree --verify-every 1",
			"run list --report out/list.json",
		},
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execRun(ctx, o, fs, cfg, log, args)
		},
	}
}

func execRun(ctx context.Context, o *IO, fs *flag.FlagSet, cfg *config.Config, log *slog.Logger, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w (one of %s)", errScenarioRequired, strings.Join(sim.Names(), ", "))
	}

	steps, _ := fs.GetInt("steps")
	live, _ := fs.GetInt("live")
	verifyEvery, _ := fs.GetInt("verify-every")
	seed, _ := fs.GetUint64("seed")
	reportPath, _ := fs.GetString("report")

	params := sim.Params{Steps: steps, Live: live, VerifyEvery: verifyEvery, Seed: seed}

	report, err := sim.Run(ctx, args[0], cfg.HeapOptions(log), params, log)
	if err != nil {
		return err
	}

	s := report.Stats
	o.Printf("scenario=%s steps=%d live=%d\n", report.Scenario, report.Steps, report.Live)
	o.Printf("total=%d max_total=%d free=%d\n", s.Total, report.MaxTotal, s.Free)
	o.Printf("arcs free=%d black=%d grey=%d white=%d\n", report.Arcs.Free, report.Arcs.Black, report.Arcs.Grey, report.Arcs.White)
	o.Printf("epochs=%d collections=%d empty_root_reclaims=%d restarts=%d expansions=%d allocations=%d\n",
		s.Epochs, s.Collections, s.EmptyRootReclaims, s.Restarts, s.Expansions, s.Allocations)

	if s.Epochs == 0 {
		o.Warn("no collection epoch ran", "raise --steps or lower --initial-size/--scan-threshold")
	}

	if reportPath == "" {
		return nil
	}

	if !filepath.IsAbs(reportPath) {
		reportPath = filepath.Join(cfg.EffectiveCwd, reportPath)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(reportPath), 0o750)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	err = atomic.WriteFile(reportPath, bytes.NewReader(append(data, '\n')))
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}

	o.Println("report=" + reportPath)

	return nil
}
