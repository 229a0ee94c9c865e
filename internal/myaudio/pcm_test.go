package myaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWriteSample_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		bitDepth int
		values   []int
	}{
		{"16 bit", 16, []int{0, 1, -1, 32767, -32768, 12345, -12345}},
		{"24 bit", 24, []int{0, 1, -1, 8388607, -8388608, 1000000, -1000000}},
		{"32 bit", 32, []int{0, 1, -1, 2147483647, -2147483648, 987654321}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := make([]byte, len(tt.values)*bytesPerSample(tt.bitDepth))
			for i, v := range tt.values {
				writeSample(buf, i, tt.bitDepth, v)
			}
			for i, want := range tt.values {
				assert.Equal(t, want, readSample(buf, i, tt.bitDepth), "index %d", i)
			}
		})
	}
}

func TestByteSliceToInts_RoundTrip(t *testing.T) {
	t.Parallel()

	samples := []int{100, -200, 300, -400, 32767, -32768}
	pcm := intsToByteSlice(samples, 16)
	assert.Len(t, pcm, len(samples)*2)
	assert.Equal(t, samples, byteSliceToInts(pcm, 16))
}

func TestSelectChannel(t *testing.T) {
	t.Parallel()

	// Three stereo frames: left 1,2,3 and right -1,-2,-3.
	interleaved := intsToByteSlice([]int{1, -1, 2, -2, 3, -3}, 16)

	left := selectChannel(interleaved, 2, 16, 0)
	assert.Equal(t, []int{1, 2, 3}, byteSliceToInts(left, 16))

	right := selectChannel(interleaved, 2, 16, 1)
	assert.Equal(t, []int{-1, -2, -3}, byteSliceToInts(right, 16))
}

func TestSelectChannel_MonoCopies(t *testing.T) {
	t.Parallel()

	pcm := intsToByteSlice([]int{5, 6, 7}, 16)
	out := selectChannel(pcm, 1, 16, 0)
	assert.Equal(t, pcm, out)

	// The copy must be independent of the input.
	out[0] = 0xFF
	assert.NotEqual(t, pcm[0], out[0])
}

func TestClampSample(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 32767, clampSample(40000, 16))
	assert.Equal(t, -32768, clampSample(-40000, 16))
	assert.Equal(t, 1000, clampSample(1000, 16))
	assert.Equal(t, 8388607, clampSample(9000000, 24))
	assert.Equal(t, -8388608, clampSample(-9000000, 24))
}

func TestFullScale(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 32768.0, fullScale(16))
	assert.Equal(t, 8388608.0, fullScale(24))
	assert.Equal(t, 2147483648.0, fullScale(32))
}

func TestSampleCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4, sampleCount(make([]byte, 8), 16))
	assert.Equal(t, 2, sampleCount(make([]byte, 6), 24))
	assert.Equal(t, 2, sampleCount(make([]byte, 8), 32))
	// Trailing partial samples are not counted.
	assert.Equal(t, 3, sampleCount(make([]byte, 7), 16))
}
