// Package sim drives a treadmill heap with synthetic host workloads and checks
// that the collector never hands out a cell the workload still holds.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/calvinalkan/treadmill/internal/runtime"
	"github.com/calvinalkan/treadmill/pkg/treadmill"
)

var (
	// ErrUnknownScenario is returned by [Run] for an unregistered scenario name.
	ErrUnknownScenario = errors.New("sim: unknown scenario")

	// ErrLiveReuse means Allocate returned a cell the workload still holds.
	ErrLiveReuse = errors.New("sim: allocate returned a live cell")

	// ErrLost means a live cell's payload no longer matches what was written.
	ErrLost = errors.New("sim: live payload lost")

	// ErrInvalidParams indicates out-of-range [Params].
	ErrInvalidParams = errors.New("sim: invalid params")
)

// Params tune a scenario run.
type Params struct {
	// Steps is the number of workload iterations. Its unit is per scenario:
	// allocations for churn, whole lists for list, subtree swaps for tree.
	Steps int
	// Live bounds the live set: roots for churn, list length for list,
	// subtree count for tree.
	Live int
	// VerifyEvery runs Heap.Verify after this many steps. 0 only verifies
	// at the end.
	VerifyEvery int
	// Seed feeds scenarios that make random choices.
	Seed uint64
}

// Default parameters for zero-valued Params fields.
const (
	DefaultSteps = 2000
	DefaultLive  = 100
)

// Report summarizes a finished run.
type Report struct {
	Scenario string          `json:"scenario"`
	Steps    int             `json:"steps"`
	Live     int             `json:"live"`
	MaxTotal int             `json:"max_total"`
	Stats    treadmill.Stats `json:"stats"`
	Arcs     treadmill.Arcs  `json:"arcs"`
}

type scenarioFunc func(ctx context.Context, w *workload) error

var scenarios = map[string]scenarioFunc{
	"churn": runChurn,
	"list":  runList,
	"tree":  runTree,
}

// Names lists the registered scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Run executes the named scenario on a fresh runtime built from opts.
// A nil log discards.
func Run(ctx context.Context, name string, opts treadmill.Options, p Params, log *slog.Logger) (Report, error) {
	fn, ok := scenarios[name]
	if !ok {
		return Report{}, fmt.Errorf("%w: %q (have %v)", ErrUnknownScenario, name, Names())
	}

	if p.Steps == 0 {
		p.Steps = DefaultSteps
	}

	if p.Live == 0 {
		p.Live = DefaultLive
	}

	if p.Steps < 0 || p.Live < 0 || p.VerifyEvery < 0 {
		return Report{}, fmt.Errorf("%w: steps=%d live=%d verify-every=%d", ErrInvalidParams, p.Steps, p.Live, p.VerifyEvery)
	}

	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if opts.Logger == nil {
		opts.Logger = log
	}

	rt, err := runtime.New(opts)
	if err != nil {
		return Report{}, err
	}

	w := &workload{rt: rt, params: p, log: log.With("scenario", name)}

	runErr := fn(ctx, w)

	report := Report{
		Scenario: name,
		Steps:    w.steps,
		Live:     p.Live,
		MaxTotal: w.maxTotal,
		Stats:    rt.Heap().Stats(),
	}

	if runErr != nil {
		return report, runErr
	}

	arcs, err := rt.Heap().Arcs()
	if err != nil {
		return report, err
	}

	report.Arcs = arcs

	w.log.Info("scenario finished", "steps", w.steps, "max_total", w.maxTotal, "heap", rt.Heap().String())

	return report, nil
}

// workload is the shared state of one scenario run.
type workload struct {
	rt       *runtime.Runtime
	params   Params
	log      *slog.Logger
	steps    int
	maxTotal int
}

// alloc allocates obj and fails if the new cell is one the workload holds.
func (w *workload) alloc(obj runtime.Object, held func(treadmill.Cell) bool) (treadmill.Cell, error) {
	cell := w.rt.Alloc(obj)
	w.maxTotal = max(w.maxTotal, w.rt.Heap().Stats().Total)

	if held(cell) {
		return treadmill.Nil, fmt.Errorf("%w: cell %d at step %d", ErrLiveReuse, cell, w.steps)
	}

	return cell, nil
}

// endStep counts a finished step, checks for cancellation, and verifies the
// heap on schedule.
func (w *workload) endStep(ctx context.Context) error {
	w.steps++

	if err := ctx.Err(); err != nil {
		return err
	}

	every := w.params.VerifyEvery
	if (every > 0 && w.steps%every == 0) || w.steps == w.params.Steps {
		err := w.rt.Heap().Verify()
		if err != nil {
			return fmt.Errorf("step %d: %w", w.steps, err)
		}

		w.log.Debug("heap verified", "step", w.steps, "heap", w.rt.Heap().String())
	}

	return nil
}
