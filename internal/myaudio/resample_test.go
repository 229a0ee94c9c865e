package myaudio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDownsampler_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		inputRate  int
		targetRate int
		wantErr    bool
	}{
		{"192k to 48k", 192000, 48000, false},
		{"96k to 48k", 96000, 48000, false},
		{"48k to 48k", 48000, 48000, true},
		{"upsampling", 48000, 96000, true},
		{"non-integer ratio", 192000, 44100, true},
		{"zero target", 48000, 0, true},
		{"zero input", 0, 48000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, err := NewDownsampler(tt.inputRate, tt.targetRate, 2, 16)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, d)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.inputRate/tt.targetRate, d.Ratio())
				assert.Equal(t, tt.targetRate, d.TargetRate())
			}
		})
	}
}

func TestDownsampler_OutputLength(t *testing.T) {
	t.Parallel()

	d, err := NewDownsampler(192000, 48000, 2, 16)
	require.NoError(t, err)

	// 4000 stereo frames in, 1000 out.
	in := make([]byte, 4000*2*2)
	out, err := d.Process(in)
	require.NoError(t, err)
	assert.Len(t, out, 1000*2*2)
}

func TestDownsampler_MisalignedInput(t *testing.T) {
	t.Parallel()

	d, err := NewDownsampler(96000, 48000, 2, 16)
	require.NoError(t, err)

	_, err = d.Process(make([]byte, 7))
	assert.Error(t, err)
}

func TestDownsampler_PreservesDC(t *testing.T) {
	t.Parallel()

	d, err := NewDownsampler(96000, 48000, 1, 16)
	require.NoError(t, err)

	// A constant signal passes the anti-aliasing low-pass unchanged once
	// the filter settles.
	const level = 8000
	frames := 9600
	samples := make([]int, frames)
	for i := range samples {
		samples[i] = level
	}

	out, err := d.Process(intsToByteSlice(samples, 16))
	require.NoError(t, err)

	decoded := byteSliceToInts(out, 16)
	require.Len(t, decoded, frames/2)
	// Check the tail, past the filter settling period.
	for _, v := range decoded[len(decoded)/2:] {
		assert.InDelta(t, level, v, 50)
	}
}

func TestDownsampler_WindowsIndependent(t *testing.T) {
	t.Parallel()

	d, err := NewDownsampler(96000, 48000, 1, 16)
	require.NoError(t, err)

	loud := make([]int, 4800)
	for i := range loud {
		loud[i] = 20000
	}
	silence := make([]int, 4800)

	_, err = d.Process(intsToByteSlice(loud, 16))
	require.NoError(t, err)

	// Filter state from the loud window must not bleed into this one.
	out, err := d.Process(intsToByteSlice(silence, 16))
	require.NoError(t, err)
	for _, v := range byteSliceToInts(out, 16) {
		assert.Zero(t, v)
	}
}
