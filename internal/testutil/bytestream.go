// Package testutil holds helpers shared by fuzz tests.
package testutil

import "github.com/calvinalkan/treadmill/pkg/treadmill"

// ByteStream reads bytes sequentially from a byte slice.
//
// Used by fuzz tests to deterministically derive values from fuzz input.
// When the stream is exhausted, all reads return zero values, so the same
// input always produces the same sequence of choices.
type ByteStream struct {
	bytes []byte
	pos   int
}

// NewByteStream creates a stream over the given bytes.
func NewByteStream(b []byte) *ByteStream {
	return &ByteStream{bytes: b}
}

// HasMore reports whether unread bytes remain.
func (s *ByteStream) HasMore() bool {
	return s.pos < len(s.bytes)
}

// Len returns the total input length, read or not.
func (s *ByteStream) Len() int {
	return len(s.bytes)
}

// NextByte returns the next byte, or 0 if exhausted.
func (s *ByteStream) NextByte() byte {
	if s.pos >= len(s.bytes) {
		return 0
	}

	v := s.bytes[s.pos]
	s.pos++

	return v
}

// NextInt returns an int in [0, maxVal) derived from the next byte.
func (s *ByteStream) NextInt(maxVal int) int {
	if maxVal <= 0 {
		return 0
	}

	return int(s.NextByte()) % maxVal
}

// NextHeapOptions consumes two bytes and returns small, valid heap options:
// InitialSize 1-7, ExpandSize 1-5, ScanStepSize 1-4 and ScanThreshold
// 0.1-1.0. Small heaps keep the collector busy on short inputs.
func (s *ByteStream) NextHeapOptions() treadmill.Options {
	sizes, scan := s.NextByte(), s.NextByte()

	return treadmill.Options{
		InitialSize:   int(sizes%7) + 1,
		ExpandSize:    int(sizes/7%5) + 1,
		ScanStepSize:  int(scan%4) + 1,
		ScanThreshold: float64(scan/4%10+1) / 10,
	}
}
