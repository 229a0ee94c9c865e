package conf

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError collects the individual violations found in the settings.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(ve.Errors, "; "))
}

var validExportFormats = map[string]bool{
	"wav":  true,
	"flac": true,
	"mp3":  true,
}

// ValidateSettings checks the complete configuration once at startup.
// Any violation is fatal: the engine must not start on a bad config.
func ValidateSettings(settings *Settings) error {
	var ve ValidationError

	validateCaptureSettings(&settings.Realtime.Capture, &ve)
	validateRecorderSettings("period", &settings.Realtime.Period, &settings.Realtime.Capture, &ve)
	validateRecorderSettings("monitor", &settings.Realtime.Monitor, &settings.Realtime.Capture, &ve)
	validateEventSettings(&settings.Realtime.Event, &settings.Realtime.Capture, &ve)
	validateExportSettings(&settings.Realtime, &ve)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateCaptureSettings(c *CaptureSettings, ve *ValidationError) {
	if c.SampleRate <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("capture sample rate must be positive, got %d", c.SampleRate))
	}
	switch c.BitDepth {
	case 16, 24, 32:
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf("unsupported bit depth %d, must be 16, 24 or 32", c.BitDepth))
	}
	if c.Channels < 1 || c.Channels > 16 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("channel count must be between 1 and 16, got %d", c.Channels))
	}
	if c.BufferSeconds <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("buffer seconds must be positive, got %d", c.BufferSeconds))
	}
}

func validateRecorderSettings(task string, r *RecorderSettings, c *CaptureSettings, ve *ValidationError) {
	if !r.Enabled {
		return
	}
	if r.Record <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s record duration must be positive, got %g", task, r.Record))
	}
	if r.Interval <= 0 {
		// A zero interval must fail loudly instead of silently disabling the task
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s interval must be positive, got %g", task, r.Interval))
	}
	if float64(c.BufferSeconds) < r.Record {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s record duration %g exceeds buffer capacity %d s", task, r.Record, c.BufferSeconds))
	}
	if !validExportFormats[strings.ToLower(r.Format)] {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s format %q not supported, must be wav, flac or mp3", task, r.Format))
	}
	if r.SampleRate < 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s target sample rate must not be negative, got %d", task, r.SampleRate))
	}
	if r.SampleRate > 0 {
		if r.SampleRate > c.SampleRate {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s target sample rate %d exceeds capture rate %d", task, r.SampleRate, c.SampleRate))
		} else if c.SampleRate%r.SampleRate != 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s target sample rate %d is not an integer divisor of capture rate %d", task, r.SampleRate, c.SampleRate))
		}
	}
	if _, err := ParseActiveWindow(r.Start, r.End); err != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s: %v", task, err))
	}
}

func validateEventSettings(e *EventSettings, c *CaptureSettings, ve *ValidationError) {
	if !e.Enabled {
		return
	}
	if e.Threshold >= 0 || e.Threshold < -120 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("event threshold must be in [-120, 0) dBFS, got %g", e.Threshold))
	}
	if e.TimeBefore < 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("event time before must not be negative, got %g", e.TimeBefore))
	}
	if e.TimeAfter <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("event time after must be positive, got %g", e.TimeAfter))
	}
	if e.TimeBefore+e.TimeAfter > float64(c.BufferSeconds) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("event window %g s exceeds buffer capacity %d s", e.TimeBefore+e.TimeAfter, c.BufferSeconds))
	}
	if e.Channel < 0 || e.Channel >= c.Channels {
		ve.Errors = append(ve.Errors, fmt.Sprintf("event channel %d out of range for %d capture channels", e.Channel, c.Channels))
	}
	if !validExportFormats[strings.ToLower(e.Format)] {
		ve.Errors = append(ve.Errors, fmt.Sprintf("event format %q not supported, must be wav, flac or mp3", e.Format))
	}
	if _, err := ParseActiveWindow(e.Start, e.End); err != nil {
		ve.Errors = append(ve.Errors, fmt.Sprintf("event: %v", err))
	}
}

func validateExportSettings(r *RealtimeSettings, ve *ValidationError) {
	e := &r.Export
	if e.Path == "" {
		ve.Errors = append(ve.Errors, "export path must not be empty")
	}
	if needsFfmpeg(r) && e.FfmpegPath == "" {
		ve.Errors = append(ve.Errors, "ffmpeg path must be set when flac or mp3 output is configured")
	}
	if e.Bitrate != "" && !IsValidBitrate(e.Bitrate) {
		ve.Errors = append(ve.Errors, fmt.Sprintf("invalid mp3 bitrate %q, expected e.g. 192k (32k-320k)", e.Bitrate))
	}
}

// needsFfmpeg reports whether any enabled task writes a non-WAV format.
func needsFfmpeg(r *RealtimeSettings) bool {
	for _, t := range []struct {
		enabled bool
		format  string
	}{
		{r.Period.Enabled, r.Period.Format},
		{r.Monitor.Enabled, r.Monitor.Format},
		{r.Event.Enabled, r.Event.Format},
	} {
		if t.enabled && strings.ToLower(t.format) != "wav" {
			return true
		}
	}
	return false
}

// IsValidBitrate checks a bitrate string such as "192k".
func IsValidBitrate(bitrate string) bool {
	if !strings.HasSuffix(bitrate, "k") {
		return false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(bitrate, "k"))
	if err != nil {
		return false
	}
	return n >= 32 && n <= 320
}
