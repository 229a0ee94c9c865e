package myaudio

import (
	"github.com/beehub/bmar-go/internal/errors"
)

// extractChunkFrames bounds how many frames are copied per lock
// acquisition. The capture callback shares the buffer mutex, so a window
// copy must never hold it for longer than one small chunk.
const extractChunkFrames = 1 << 16

// ExtractWindow copies the frames in [start, end) out of the buffer,
// handling wraparound. It is the single place window extraction lives;
// recording workers and the event detector both go through it.
//
// start and end are absolute frame positions as returned by
// CaptureBuffer.WriteIndex. A negative start is clamped to zero so that
// windows reaching before the first write shrink instead of failing.
// Windows larger than the buffer capacity fail with ErrWindowTooLarge,
// never a silent truncation.
//
// The copy proceeds in bounded chunks, releasing the buffer lock between
// them. A frame at an absolute position is immutable until the writer laps
// it, which each chunk re-checks; a window lapped mid-copy fails with
// ErrWindowOverwritten rather than returning mixed data.
func ExtractWindow(cb *CaptureBuffer, start, end int64) ([]byte, error) {
	if start < 0 {
		start = 0
	}

	cb.mu.Lock()
	err := cb.validateWindow(start, end)
	cb.mu.Unlock()
	if err != nil {
		return nil, err
	}

	frameBytes := int64(cb.frameBytes)
	out := make([]byte, (end-start)*frameBytes)
	for pos := start; pos < end; {
		chunkEnd := pos + extractChunkFrames
		if chunkEnd > end {
			chunkEnd = end
		}

		cb.mu.Lock()
		if pos < cb.writeTotal-cb.capacityFrames {
			oldest := cb.writeTotal - cb.capacityFrames
			cb.mu.Unlock()
			return nil, errors.New(ErrWindowOverwritten).
				Component(component).
				Category(errors.CategoryBuffer).
				Context("position", pos).
				Context("oldest_available", oldest).
				Build()
		}
		cb.copyRange(out[(pos-start)*frameBytes:(chunkEnd-start)*frameBytes], pos, chunkEnd)
		cb.mu.Unlock()

		pos = chunkEnd
	}
	return out, nil
}

// validateWindow checks the requested bounds against the buffer state. The
// caller holds cb.mu.
func (cb *CaptureBuffer) validateWindow(start, end int64) error {
	switch {
	case end <= start:
		return errors.New(ErrWindowInvalid).
			Component(component).
			Category(errors.CategoryBuffer).
			Context("start", start).
			Context("end", end).
			Build()
	case end-start > cb.capacityFrames:
		return errors.New(ErrWindowTooLarge).
			Component(component).
			Category(errors.CategoryBuffer).
			Context("frames", end-start).
			Context("capacity", cb.capacityFrames).
			Build()
	case end > cb.writeTotal:
		return errors.New(ErrWindowNotReady).
			Component(component).
			Category(errors.CategoryBuffer).
			Context("end", end).
			Context("write_index", cb.writeTotal).
			Build()
	case start < cb.writeTotal-cb.capacityFrames:
		return errors.New(ErrWindowOverwritten).
			Component(component).
			Category(errors.CategoryBuffer).
			Context("start", start).
			Context("oldest_available", cb.writeTotal-cb.capacityFrames).
			Build()
	}

	return nil
}
