// this file defines the ring buffer used for capturing audio
package myaudio

import (
	"sync"
	"time"

	"github.com/beehub/bmar-go/internal/errors"
)

// maxBufferBytes caps buffer allocations at 1 GB.
const maxBufferBytes = 1 << 30

// frameAlign rounds buffer capacity up to a multiple of this many frames.
const frameAlign = 512

// CaptureBuffer is a fixed-capacity circular buffer for interleaved PCM
// audio. A single writer (the device callback) appends frames; any number
// of readers take snapshots addressed by absolute frame position. The write
// index is a monotonic frame counter that never wraps, only the backing
// storage does.
type CaptureBuffer struct {
	mu sync.Mutex

	data           []byte
	capacityFrames int64
	frameBytes     int

	sampleRate int
	channels   int
	bitDepth   int

	writeTotal int64 // frames written since start, monotonic
	wraps      uint64
	misaligned uint64 // writes whose length was not frame-aligned

	startTime   time.Time
	initialized bool
}

// NewCaptureBuffer allocates a buffer holding durationSeconds of audio in
// the given format.
func NewCaptureBuffer(durationSeconds, sampleRate, channels, bitDepth int) (*CaptureBuffer, error) {
	if durationSeconds <= 0 {
		return nil, errors.Newf("invalid duration: %d seconds, must be greater than 0", durationSeconds).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}
	if sampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d Hz, must be greater than 0", sampleRate).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}
	if channels <= 0 {
		return nil, errors.Newf("invalid channel count: %d, must be greater than 0", channels).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, errors.Newf("unsupported bit depth: %d, must be 16, 24 or 32", bitDepth).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}

	frameBytes := channels * bitDepth / 8
	capacityFrames := int64(durationSeconds) * int64(sampleRate)
	// Round up so the byte size stays block-aligned
	capacityFrames = (capacityFrames + frameAlign - 1) / frameAlign * frameAlign

	byteSize := capacityFrames * int64(frameBytes)
	if byteSize > maxBufferBytes {
		return nil, errors.Newf("requested buffer size too large: %d bytes (>1GB)", byteSize).
			Component(component).
			Category(errors.CategoryBuffer).
			Build()
	}

	return &CaptureBuffer{
		data:           make([]byte, byteSize),
		capacityFrames: capacityFrames,
		frameBytes:     frameBytes,
		sampleRate:     sampleRate,
		channels:       channels,
		bitDepth:       bitDepth,
	}, nil
}

// Write appends PCM data and returns the new absolute write index in
// frames. Incomplete trailing frames are dropped. Write never blocks and
// never allocates; it is safe to call from the realtime audio callback.
func (cb *CaptureBuffer) Write(data []byte) int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if len(data) == 0 {
		return cb.writeTotal
	}
	if len(data)%cb.frameBytes != 0 {
		cb.misaligned++
	}

	frames := int64(len(data)) / int64(cb.frameBytes)
	if frames == 0 {
		return cb.writeTotal
	}
	data = data[:frames*int64(cb.frameBytes)]

	if !cb.initialized {
		cb.startTime = time.Now()
		cb.initialized = true
	}

	if frames >= cb.capacityFrames {
		// Oversized write: only the most recent buffer's worth survives
		skip := frames - cb.capacityFrames
		data = data[skip*int64(cb.frameBytes):]
	}

	pos := (cb.writeTotal % cb.capacityFrames) * int64(cb.frameBytes)
	n := copy(cb.data[pos:], data)
	if n < len(data) {
		copy(cb.data, data[n:])
	}

	wrapsBefore := cb.writeTotal / cb.capacityFrames
	cb.writeTotal += frames
	cb.wraps += uint64(cb.writeTotal/cb.capacityFrames - wrapsBefore)

	return cb.writeTotal
}

// WriteIndex returns the absolute write position in frames.
func (cb *CaptureBuffer) WriteIndex() int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.writeTotal
}

// Capacity returns the buffer capacity in frames.
func (cb *CaptureBuffer) Capacity() int64 {
	return cb.capacityFrames
}

// SampleRate returns the sample rate the buffer was allocated for.
func (cb *CaptureBuffer) SampleRate() int { return cb.sampleRate }

// Channels returns the interleaved channel count.
func (cb *CaptureBuffer) Channels() int { return cb.channels }

// BitDepth returns the sample bit depth.
func (cb *CaptureBuffer) BitDepth() int { return cb.bitDepth }

// FrameBytes returns the byte size of one interleaved frame.
func (cb *CaptureBuffer) FrameBytes() int { return cb.frameBytes }

// Duration returns the buffer capacity as a time span.
func (cb *CaptureBuffer) Duration() time.Duration {
	return time.Duration(cb.capacityFrames) * time.Second / time.Duration(cb.sampleRate)
}

// WrapCount returns how many times the buffer has wrapped since start.
func (cb *CaptureBuffer) WrapCount() uint64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.wraps
}

// MisalignedWrites returns how many writes were not frame-aligned.
func (cb *CaptureBuffer) MisalignedWrites() uint64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.misaligned
}

// StartTime returns the wall-clock time of the first write.
func (cb *CaptureBuffer) StartTime() (time.Time, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.startTime, cb.initialized
}

// copyRange copies the frames in [start, end) into dst. Callers address
// frames by absolute position, copyRange maps them onto the ring and
// handles the wraparound split. The caller holds cb.mu and has validated
// the bounds; dst is sized to exactly end-start frames.
func (cb *CaptureBuffer) copyRange(dst []byte, start, end int64) {
	startPos := (start % cb.capacityFrames) * int64(cb.frameBytes)
	n := copy(dst, cb.data[startPos:])
	if int64(n) < (end-start)*int64(cb.frameBytes) {
		copy(dst[n:], cb.data)
	}
}
