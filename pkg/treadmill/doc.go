// Package treadmill provides an incremental, non-moving tracing garbage
// collector based on Baker's Treadmill.
//
// Every cell the collector owns lives on one circular doubly-linked list. The
// list is split into four contiguous arcs (Free, Black, Grey, White) by four
// cursors, so recoloring a cell is an O(1) splice instead of a copy. Tracing
// work is done a few cells at a time as a side effect of [Heap.Allocate],
// which bounds the latency any single allocation pays for collection.
//
// # Basic Usage
//
//	heap, err := treadmill.New[Value](tracer, treadmill.Options{
//	    InitialSize:   1024,
//	    ScanStepSize:  16,
//	    ScanThreshold: 0.25,
//	})
//	if err != nil {
//	    // invalid options
//	}
//
//	cell := heap.Allocate()
//	heap.Write(cell, v)
//	v = heap.Read(cell)
//
// The host describes its object graph through a [Tracer]: Roots enumerates the
// cells the host currently holds, Children enumerates the cells referenced by a
// payload. Both are called only from inside Allocate and must not call back
// into the heap.
//
// # Read Barrier
//
// While an epoch is tracing, [Heap.Read] promotes the cell it returns out of
// the White arc. Any cell the host has observed is therefore kept for the
// rest of the epoch, even if the host stores the reference somewhere the
// collector already traced.
//
// # Colors
//
// Black and Grey cells carry the current epoch's mark token; White and Free
// cells do not. The token flip at epoch start turns the whole Black arc White
// without touching a single cell. Which of the two a marked cell is (or which
// of the two an unmarked cell is) follows from arc membership alone.
//
// # Concurrency
//
// A Heap is not safe for concurrent use. The collector and the host take turns
// on one goroutine; every method runs to completion before returning.
//
// # Error Handling
//
// [New] returns [ErrInvalidOptions] for bad configuration. Everything else the
// heap can detect is a broken contract between host and collector (starting an
// epoch twice, a root that is not an allocated cell, a corrupted ring) and
// panics. [Heap.Verify] walks the ring and reports [ErrCorrupt] for tests and
// diagnostics.
package treadmill
