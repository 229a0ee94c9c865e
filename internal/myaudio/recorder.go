// this file implements the recurring recording tasks (period, monitor)
package myaudio

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/beehub/bmar-go/internal/conf"
	"github.com/beehub/bmar-go/internal/errors"
	"github.com/beehub/bmar-go/internal/observability/metrics"
)

// defaultPollInterval is the tick used for interruptible sleeps, so stop
// requests are honored within half a second.
const defaultPollInterval = 500 * time.Millisecond

// RecordingSpec describes one recurring recording task. Specs are built at
// startup and never mutated.
type RecordingSpec struct {
	Task             string // task name used in filenames and logs
	CaptureDuration  time.Duration
	Interval         time.Duration
	Format           string
	TargetSampleRate int // 0 keeps the negotiated capture rate
	Active           *conf.ActiveWindow
	LocationID       string
	HiveID           string
	OutputDir        string
}

// RecordingWorker captures windows from the circular buffer on a fixed
// cadence and hands them to the file sink. One worker per task.
type RecordingWorker struct {
	spec    RecordingSpec
	buffer  *CaptureBuffer
	dev     DeviceConfig
	sink    FileSink
	down    *Downsampler
	metrics *metrics.MyAudioMetrics
	log     *slog.Logger
	poll    time.Duration
	now     func() time.Time
}

// NewRecordingWorker validates the spec against the negotiated device
// config and builds the worker. Validation failures are fatal: a worker
// with a bad spec must never start.
func NewRecordingWorker(spec RecordingSpec, buffer *CaptureBuffer, dev DeviceConfig, sink FileSink, m *metrics.MyAudioMetrics, logger *slog.Logger) (*RecordingWorker, error) {
	if logger == nil {
		logger = getLogger()
	}

	if spec.CaptureDuration <= 0 {
		return nil, errors.Newf("task %s: capture duration must be positive, got %v", spec.Task, spec.CaptureDuration).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if spec.Interval <= 0 {
		// A zero interval silently disabled the task in an earlier
		// incarnation of this system; reject it outright.
		return nil, errors.Newf("task %s: interval must be positive, got %v", spec.Task, spec.Interval).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if spec.CaptureDuration > buffer.Duration() {
		return nil, errors.Newf("task %s: capture duration %v exceeds buffer capacity %v", spec.Task, spec.CaptureDuration, buffer.Duration()).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	switch strings.ToLower(spec.Format) {
	case "wav", "flac", "mp3":
	default:
		return nil, errors.Newf("task %s: unsupported output format %q", spec.Task, spec.Format).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}

	var down *Downsampler
	if spec.TargetSampleRate > 0 && spec.TargetSampleRate != dev.SampleRate {
		var err error
		down, err = NewDownsampler(dev.SampleRate, spec.TargetSampleRate, dev.Channels, dev.BitDepth)
		if err != nil {
			return nil, err
		}
	}

	return &RecordingWorker{
		spec:    spec,
		buffer:  buffer,
		dev:     dev,
		sink:    sink,
		down:    down,
		metrics: m,
		log:     logger,
		poll:    defaultPollInterval,
		now:     time.Now,
	}, nil
}

// Run executes the capture loop until stop is closed. Each cycle records
// the write index, sleeps for the capture duration, extracts the window by
// index, downsamples if configured, and saves. A stop during capture
// discards the partial window without saving.
func (w *RecordingWorker) Run(stop <-chan struct{}) {
	w.log.Info("recording worker started",
		"task", w.spec.Task,
		"duration", w.spec.CaptureDuration,
		"interval", w.spec.Interval,
		"format", w.spec.Format)

	for {
		if w.spec.Active != nil && !w.waitForWindow(stop) {
			w.log.Info("recording worker stopped", "task", w.spec.Task)
			return
		}

		startIndex := w.buffer.WriteIndex()
		if !w.sleep(w.spec.CaptureDuration, stop) {
			w.log.Info("stop requested during capture, discarding partial window", "task", w.spec.Task)
			return
		}
		endIndex := w.buffer.WriteIndex()

		w.captureCycle(startIndex, endIndex)

		if !w.sleep(w.spec.Interval, stop) {
			w.log.Info("recording worker stopped", "task", w.spec.Task)
			return
		}
	}
}

// captureCycle extracts, optionally downsamples and saves one window.
// Failures are logged and the cycle skipped; the loop always continues.
func (w *RecordingWorker) captureCycle(startIndex, endIndex int64) {
	pcm, err := ExtractWindow(w.buffer, startIndex, endIndex)
	if err != nil {
		w.log.Error("window extraction failed, skipping cycle",
			"task", w.spec.Task,
			"start", startIndex,
			"end", endIndex,
			"error", err)
		w.metrics.RecordCaptureCycle(w.spec.Task, "extract_error")
		return
	}

	sampleRate := w.dev.SampleRate
	if w.down != nil {
		pcm, err = w.down.Process(pcm)
		if err != nil {
			w.log.Error("downsampling failed, skipping save",
				"task", w.spec.Task,
				"error", err)
			w.metrics.RecordResampleError(w.spec.Task)
			w.metrics.RecordCaptureCycle(w.spec.Task, "resample_error")
			return
		}
		sampleRate = w.down.TargetRate()
	}

	filename := w.filename(w.now())
	outputPath := filepath.Join(w.spec.OutputDir, filename)
	clip := &Capture{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   w.dev.Channels,
		BitDepth:   w.dev.BitDepth,
	}

	if err := w.sink.Save(clip, w.spec.Format, outputPath); err != nil {
		w.log.Error("failed to save capture, skipping cycle",
			"task", w.spec.Task,
			"path", outputPath,
			"error", err)
		w.metrics.RecordSaveError(w.spec.Task, w.spec.Format)
		w.metrics.RecordCaptureCycle(w.spec.Task, "save_error")
		return
	}

	w.log.Info("capture saved",
		"task", w.spec.Task,
		"path", outputPath,
		"frames", int64(len(clip.PCM))/int64(clip.Channels*bytesPerSample(clip.BitDepth)),
		"sample_rate", sampleRate)
	w.metrics.RecordClipSaved(w.spec.Task, w.spec.Format)
	w.metrics.RecordCaptureCycle(w.spec.Task, "success")
}

// filename builds the capture file name:
// {timestamp}_{task}_{duration}_{interval}_{location}_{hive}.{ext}
func (w *RecordingWorker) filename(t time.Time) string {
	return fmt.Sprintf("%s_%s_%d_%d_%s_%s.%s",
		t.Format("20060102-150405"),
		w.spec.Task,
		int(w.spec.CaptureDuration.Seconds()),
		int(w.spec.Interval.Seconds()),
		w.spec.LocationID,
		w.spec.HiveID,
		strings.ToLower(w.spec.Format))
}

// waitForWindow blocks until the task's time-of-day window opens. Returns
// false when stop was requested.
func (w *RecordingWorker) waitForWindow(stop <-chan struct{}) bool {
	for !w.spec.Active.Contains(w.now()) {
		select {
		case <-stop:
			return false
		case <-time.After(w.poll):
		}
	}
	return true
}

// sleep waits for d in short polls so a stop request interrupts promptly.
// Returns false when stop was requested.
func (w *RecordingWorker) sleep(d time.Duration, stop <-chan struct{}) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := w.poll
		if remaining < step {
			step = remaining
		}
		select {
		case <-stop:
			return false
		case <-time.After(step):
		}
	}
}
