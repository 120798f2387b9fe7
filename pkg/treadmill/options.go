package treadmill

import (
	"fmt"
	"io"
	"log/slog"
)

// Defaults applied by [New] to zero-valued [Options] fields.
const (
	DefaultInitialSize   = 100
	DefaultExpandSize    = 100
	DefaultScanStepSize  = 10
	DefaultScanThreshold = 0.5
)

// Options configure a [Heap].
type Options struct {
	// InitialSize is the number of Free cells the ring starts with.
	InitialSize int

	// ExpandSize is the number of cells added each time the Free arc would
	// otherwise run dry.
	ExpandSize int

	// ScanStepSize is the maximum number of Grey cells traced per Allocate.
	ScanStepSize int

	// ScanThreshold starts a new epoch once free/total drops to or below it.
	// Must satisfy 0 < ScanThreshold <= 1.
	ScanThreshold float64

	// Logger receives Debug records for epoch transitions and growth.
	// Nil discards.
	Logger *slog.Logger
}

// withDefaults fills zero fields. Negative values are left alone so validate
// can reject them.
func (o Options) withDefaults() Options {
	if o.InitialSize == 0 {
		o.InitialSize = DefaultInitialSize
	}

	if o.ExpandSize == 0 {
		o.ExpandSize = DefaultExpandSize
	}

	if o.ScanStepSize == 0 {
		o.ScanStepSize = DefaultScanStepSize
	}

	if o.ScanThreshold == 0 {
		o.ScanThreshold = DefaultScanThreshold
	}

	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return o
}

func (o Options) validate() error {
	if o.InitialSize < 1 || o.InitialSize > maxCells {
		return fmt.Errorf("%w: initial size %d out of range", ErrInvalidOptions, o.InitialSize)
	}

	if o.ExpandSize < 1 || o.ExpandSize > maxCells {
		return fmt.Errorf("%w: expand size %d out of range", ErrInvalidOptions, o.ExpandSize)
	}

	if o.ScanStepSize < 1 {
		return fmt.Errorf("%w: scan step size %d must be positive", ErrInvalidOptions, o.ScanStepSize)
	}

	// Written as a negated range so NaN is rejected too.
	if !(o.ScanThreshold > 0 && o.ScanThreshold <= 1) {
		return fmt.Errorf("%w: scan threshold %v not in (0, 1]", ErrInvalidOptions, o.ScanThreshold)
	}

	return nil
}
