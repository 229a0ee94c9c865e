package myaudio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractWindow_Errors(t *testing.T) {
	t.Parallel()

	cb := newTestBuffer(t, 1)
	capacity := cb.Capacity()
	cb.Write(pattern(0, int(capacity)*2)) // fill exactly once

	tests := []struct {
		name    string
		start   int64
		end     int64
		wantErr error
	}{
		{"empty window", 100, 100, ErrWindowInvalid},
		{"inverted window", 200, 100, ErrWindowInvalid},
		{"larger than capacity", 0, capacity + 1, ErrWindowTooLarge},
		{"beyond write index", capacity - 10, capacity + 10, ErrWindowNotReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractWindow(cb, tt.start, tt.end)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
		})
	}
}

func TestExtractWindow_Overwritten(t *testing.T) {
	t.Parallel()

	cb := newTestBuffer(t, 1)
	capacity := cb.Capacity()

	// Two full laps: frames before capacity are gone.
	cb.Write(pattern(0, int(capacity)*2))
	cb.Write(pattern(0, int(capacity)*2))

	_, err := ExtractWindow(cb, capacity-1, capacity+10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWindowOverwritten)

	// The oldest retained frame is still extractable.
	got, err := ExtractWindow(cb, capacity, capacity+10)
	require.NoError(t, err)
	assert.Len(t, got, 10*2)
}

func TestExtractWindow_NegativeStartClamped(t *testing.T) {
	t.Parallel()

	cb := newTestBuffer(t, 1)
	data := pattern(0, 100*2)
	cb.Write(data)

	// A window reaching before the first write shrinks to what exists.
	got, err := ExtractWindow(cb, -50, 100)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestExtractWindow_TooLargeNeverTruncates(t *testing.T) {
	t.Parallel()

	cb := newTestBuffer(t, 1)
	capacity := cb.Capacity()
	cb.Write(pattern(0, int(capacity)*2))
	cb.Write(pattern(0, int(capacity)*2))

	// Requesting more than capacity must fail outright even though the
	// buffer has seen that many frames pass through.
	got, err := ExtractWindow(cb, 0, capacity*2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWindowTooLarge)
	assert.Nil(t, got)
}

// TestExtractWindow_RecentSeconds covers pulling the most recent span out
// of a buffer that has wrapped: a 10 second buffer at 48 kHz that has seen
// 15 seconds of audio serves the last 5 seconds as frames [480000, 720000).
func TestExtractWindow_RecentSeconds(t *testing.T) {
	t.Parallel()

	const sampleRate = 48000
	cb, err := NewCaptureBuffer(10, sampleRate, 1, 16)
	require.NoError(t, err)

	chunk := make([]byte, sampleRate*2) // one second per write
	for i := 0; i < 15; i++ {
		for j := range chunk {
			chunk[j] = byte(i)
		}
		cb.Write(chunk)
	}

	end := cb.WriteIndex()
	require.Equal(t, int64(15*sampleRate), end)

	start := end - 5*sampleRate
	got, err := ExtractWindow(cb, start, end)
	require.NoError(t, err)
	require.Len(t, got, 5*sampleRate*2)

	// Seconds 10 through 14 in order.
	for sec := 0; sec < 5; sec++ {
		assert.Equal(t, byte(10+sec), got[sec*sampleRate*2], "second %d", sec)
	}
}

// TestExtractWindow_WriteLatencyDuringLargeExtract feeds callback-sized
// blocks while a half-buffer window is pulled from a 30 second 192 kHz
// stereo ring. The writer shares the buffer mutex with the extraction, so
// every write must complete well within a callback period even while
// megabytes are being copied out.
func TestExtractWindow_WriteLatencyDuringLargeExtract(t *testing.T) {
	t.Parallel()

	cb, err := NewCaptureBuffer(30, 192000, 2, 16)
	require.NoError(t, err)

	second := make([]byte, 192000*4)
	for i := 0; i < 30; i++ {
		cb.Write(second)
	}

	block := make([]byte, 1920*4) // 10 ms at 192 kHz stereo
	stop := make(chan struct{})
	var maxStall time.Duration
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			begin := time.Now()
			cb.Write(block)
			if d := time.Since(begin); d > maxStall {
				maxStall = d
			}
			time.Sleep(time.Millisecond)
		}
	}()

	for i := 0; i < 5; i++ {
		end := cb.WriteIndex()
		window, err := ExtractWindow(cb, end-cb.Capacity()/2, end)
		require.NoError(t, err)
		require.Len(t, window, int(cb.Capacity()/2)*4)
	}

	close(stop)
	wg.Wait()

	assert.Less(t, maxStall, 25*time.Millisecond, "write stalled behind extraction")
}
