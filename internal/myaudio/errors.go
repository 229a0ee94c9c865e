package myaudio

import (
	"github.com/beehub/bmar-go/internal/errors"
)

// component is the name attached to enhanced errors from this package.
const component = "myaudio"

// Sentinel errors for buffer window extraction and device negotiation.
// Callers match these with errors.Is.
var (
	// ErrWindowTooLarge is returned when a requested window exceeds the
	// buffer capacity. Extraction never silently truncates.
	ErrWindowTooLarge = errors.NewStd("requested window exceeds buffer capacity")

	// ErrWindowInvalid is returned when the window end does not lie after
	// its start.
	ErrWindowInvalid = errors.NewStd("window end must be after window start")

	// ErrWindowNotReady is returned when the window end lies beyond the
	// data written so far.
	ErrWindowNotReady = errors.NewStd("window end beyond written data")

	// ErrWindowOverwritten is returned when the window start has already
	// been overwritten by newer data.
	ErrWindowOverwritten = errors.NewStd("window start already overwritten")

	// ErrNoUsableDevice is returned when every candidate device failed
	// negotiation at every rate. This is fatal at startup.
	ErrNoUsableDevice = errors.NewStd("no usable capture device found")
)
