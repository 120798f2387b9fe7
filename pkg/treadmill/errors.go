package treadmill

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOptions indicates [Options] failed validation in [New].
	ErrInvalidOptions = errors.New("treadmill: invalid options")

	// ErrCorrupt indicates [Heap.Verify] found a broken ring or cursor invariant.
	//
	// This is a programming error in the collector or a host that handed the
	// collector a cell it does not own.
	ErrCorrupt = errors.New("treadmill: corrupt")
)

// fail aborts on a violated precondition. These are never recoverable: the
// ring can no longer be trusted once one is detected.
func fail(format string, args ...any) {
	panic("treadmill: " + fmt.Sprintf(format, args...))
}
