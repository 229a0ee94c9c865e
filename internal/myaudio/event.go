// this file implements threshold-triggered event capture
package myaudio

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/beehub/bmar-go/internal/conf"
	"github.com/beehub/bmar-go/internal/errors"
	"github.com/beehub/bmar-go/internal/observability/metrics"
)

// EventPhase is the detector state.
type EventPhase int32

const (
	// EventIdle means the detector is armed and watching peak levels.
	EventIdle EventPhase = iota
	// EventTriggered means a threshold excursion was just detected and the
	// before-window is being saved.
	EventTriggered
	// EventCapturingAfter means the detector is waiting for the
	// after-window to finish filling.
	EventCapturingAfter
)

func (p EventPhase) String() string {
	switch p {
	case EventIdle:
		return "idle"
	case EventTriggered:
		return "triggered"
	case EventCapturingAfter:
		return "capturing-after"
	default:
		return "unknown"
	}
}

// eventDetectorPoll is how often the detector checks whether the
// after-window has filled.
const eventDetectorPoll = 100 * time.Millisecond

// EventSpec describes the event capture task.
type EventSpec struct {
	ThresholdDBFS float64 // trigger level, negative
	TimeBefore    time.Duration
	TimeAfter     time.Duration
	Channel       int // zero-based monitored channel
	Format        string
	Active        *conf.ActiveWindow
	LocationID    string
	HiveID        string
	OutputDir     string
}

// levelSample is one peak measurement delivered from the audio callback.
type levelSample struct {
	peak  float64 // normalized 0.0 to 1.0
	index int64   // buffer write index after the block
}

// EventDetector watches per-block peak levels and, on a threshold
// excursion, saves a window before the trigger and a window after it.
// While not idle, further excursions are ignored: exactly one before/after
// pair per event.
type EventDetector struct {
	spec            EventSpec
	thresholdLinear float64
	buffer          *CaptureBuffer
	dev             DeviceConfig
	sink            FileSink
	metrics         *metrics.MyAudioMetrics
	log             *slog.Logger

	levels chan levelSample
	poll   time.Duration
	now    func() time.Time

	phase atomic.Int32

	// trigger bookkeeping, owned by the Run goroutine
	triggerIndex int64
	triggerTime  time.Time
	triggerPeak  float64
}

// NewEventDetector validates the spec against the negotiated device and
// buffer and builds the detector.
func NewEventDetector(spec EventSpec, buffer *CaptureBuffer, dev DeviceConfig, sink FileSink, m *metrics.MyAudioMetrics, logger *slog.Logger) (*EventDetector, error) {
	if logger == nil {
		logger = getLogger()
	}

	if spec.ThresholdDBFS >= 0 || spec.ThresholdDBFS < -120 {
		return nil, errors.Newf("event threshold must be in [-120, 0) dBFS, got %g", spec.ThresholdDBFS).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if spec.TimeBefore < 0 || spec.TimeAfter <= 0 {
		return nil, errors.Newf("invalid event windows: before %v, after %v", spec.TimeBefore, spec.TimeAfter).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if spec.TimeBefore+spec.TimeAfter > buffer.Duration() {
		return nil, errors.Newf("event window %v exceeds buffer capacity %v", spec.TimeBefore+spec.TimeAfter, buffer.Duration()).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if spec.Channel < 0 || spec.Channel >= dev.Channels {
		return nil, errors.Newf("event channel %d out of range for %d channels", spec.Channel, dev.Channels).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	switch strings.ToLower(spec.Format) {
	case "wav", "flac", "mp3":
	default:
		return nil, errors.Newf("event: unsupported output format %q", spec.Format).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}

	return &EventDetector{
		spec:            spec,
		thresholdLinear: dbfsToLinear(spec.ThresholdDBFS),
		buffer:          buffer,
		dev:             dev,
		sink:            sink,
		metrics:         m,
		log:             logger,
		levels:          make(chan levelSample, 64),
		poll:            eventDetectorPoll,
		now:             time.Now,
	}, nil
}

// Phase returns the current detector phase.
func (d *EventDetector) Phase() EventPhase {
	return EventPhase(d.phase.Load())
}

// Notify delivers a peak measurement from the audio callback. It never
// blocks: when the detector is behind, measurements are dropped, which only
// delays a trigger by one block.
func (d *EventDetector) Notify(peak float64, index int64) {
	select {
	case d.levels <- levelSample{peak: peak, index: index}:
	default:
	}
}

// Run executes the detector loop until stop is closed.
func (d *EventDetector) Run(stop <-chan struct{}) {
	d.log.Info("event detector started",
		"threshold_dbfs", d.spec.ThresholdDBFS,
		"time_before", d.spec.TimeBefore,
		"time_after", d.spec.TimeAfter,
		"channel", d.spec.Channel)

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			d.log.Info("event detector stopped")
			return
		case s := <-d.levels:
			d.handleLevel(s)
		case <-ticker.C:
			d.checkAfterWindow()
		}
	}
}

// handleLevel processes one peak measurement. Only the idle phase can
// trigger; anything else is the debounce.
func (d *EventDetector) handleLevel(s levelSample) {
	if d.Phase() != EventIdle {
		return
	}
	if s.peak <= d.thresholdLinear {
		return
	}
	if d.spec.Active != nil && !d.spec.Active.Contains(d.now()) {
		return
	}
	d.trigger(s)
}

// trigger records the excursion and saves the before-window immediately,
// while the samples are still in the buffer.
func (d *EventDetector) trigger(s levelSample) {
	d.phase.Store(int32(EventTriggered))
	d.triggerIndex = s.index
	d.triggerTime = d.now()
	d.triggerPeak = s.peak

	d.log.Info("event triggered",
		"peak_dbfs", fmt.Sprintf("%.1f", linearToDBFS(s.peak)),
		"write_index", s.index)
	d.metrics.RecordEventTriggered()

	beforeFrames := durationToFrames(d.spec.TimeBefore, d.dev.SampleRate)
	start := d.triggerIndex - beforeFrames

	pcm, err := ExtractWindow(d.buffer, start, d.triggerIndex)
	if err != nil {
		d.log.Error("failed to extract event before-window", "error", err)
	} else {
		d.save(pcm, "eventpre")
	}

	d.phase.Store(int32(EventCapturingAfter))
}

// checkAfterWindow saves the after-window once enough audio has been
// written past the trigger, then re-arms the detector.
func (d *EventDetector) checkAfterWindow() {
	if d.Phase() != EventCapturingAfter {
		return
	}

	afterFrames := durationToFrames(d.spec.TimeAfter, d.dev.SampleRate)
	end := d.triggerIndex + afterFrames
	if d.buffer.WriteIndex() < end {
		return
	}

	pcm, err := ExtractWindow(d.buffer, d.triggerIndex, end)
	if err != nil {
		d.log.Error("failed to extract event after-window", "error", err)
	} else {
		d.save(pcm, "eventpost")
	}

	// Re-arm
	d.triggerIndex = 0
	d.triggerPeak = 0
	d.phase.Store(int32(EventIdle))
}

// save writes one event window through the file sink.
func (d *EventDetector) save(pcm []byte, task string) {
	filename := d.filename(task)
	outputPath := filepath.Join(d.spec.OutputDir, filename)
	clip := &Capture{
		PCM:        pcm,
		SampleRate: d.dev.SampleRate,
		Channels:   d.dev.Channels,
		BitDepth:   d.dev.BitDepth,
	}
	if err := d.sink.Save(clip, d.spec.Format, outputPath); err != nil {
		d.log.Error("failed to save event capture", "path", outputPath, "error", err)
		d.metrics.RecordSaveError(task, d.spec.Format)
		return
	}
	d.log.Info("event capture saved", "path", outputPath)
	d.metrics.RecordClipSaved(task, d.spec.Format)
}

// filename builds the event file name:
// {timestamp}_{task}_{level}_{before}_{after}_{location}_{hive}.{ext}
func (d *EventDetector) filename(task string) string {
	return fmt.Sprintf("%s_%s_%d_%d_%d_%s_%s.%s",
		d.triggerTime.Format("20060102-150405"),
		task,
		int(math.Round(linearToDBFS(d.triggerPeak))),
		int(d.spec.TimeBefore.Seconds()),
		int(d.spec.TimeAfter.Seconds()),
		d.spec.LocationID,
		d.spec.HiveID,
		strings.ToLower(d.spec.Format))
}

// linearToDBFS converts a normalized amplitude to dBFS.
func linearToDBFS(v float64) float64 {
	if v <= 0 {
		return -120
	}
	return 20 * math.Log10(v)
}

// durationToFrames converts a duration to a frame count at the given rate.
func durationToFrames(d time.Duration, sampleRate int) int64 {
	return int64(d.Seconds() * float64(sampleRate))
}
