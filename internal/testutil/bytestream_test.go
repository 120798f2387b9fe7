package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinalkan/treadmill/internal/testutil"
)

func Test_ByteStream_Returns_Zero_When_Exhausted(t *testing.T) {
	t.Parallel()

	s := testutil.NewByteStream([]byte{9, 200})

	assert.True(t, s.HasMore())
	assert.Equal(t, 4, s.NextInt(5))
	assert.Equal(t, byte(200), s.NextByte())
	assert.False(t, s.HasMore())
	assert.Equal(t, byte(0), s.NextByte())
	assert.Equal(t, 0, s.NextInt(3))
	assert.Equal(t, 0, s.NextInt(0))
	assert.Equal(t, 2, s.Len())
}

func Test_NextHeapOptions_Always_In_Range(t *testing.T) {
	t.Parallel()

	for a := range 256 {
		for b := range 256 {
			opts := testutil.NewByteStream([]byte{byte(a), byte(b)}).NextHeapOptions()

			if opts.InitialSize < 1 || opts.InitialSize > 7 ||
				opts.ExpandSize < 1 || opts.ExpandSize > 5 ||
				opts.ScanStepSize < 1 || opts.ScanStepSize > 4 ||
				opts.ScanThreshold <= 0 || opts.ScanThreshold > 1 {
				t.Fatalf("bytes (%d, %d) gave out-of-range options %+v", a, b, opts)
			}
		}
	}
}
