// Package metrics provides Prometheus metrics for the capture engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MyAudioMetrics contains Prometheus metrics for capture buffer and
// recording task operations.
type MyAudioMetrics struct {
	registry *prometheus.Registry

	bufferWraparoundsTotal *prometheus.CounterVec
	bufferCapacityGauge    *prometheus.GaugeVec
	bufferWriteBytesTotal  *prometheus.CounterVec

	captureCyclesTotal *prometheus.CounterVec
	clipsSavedTotal    *prometheus.CounterVec
	saveErrorsTotal    *prometheus.CounterVec
	resampleErrors     *prometheus.CounterVec

	eventsTriggeredTotal prometheus.Counter
	deviceRestartsTotal  prometheus.Counter
	audioLevelGauge      *prometheus.GaugeVec
}

// NewMyAudioMetrics creates and registers capture engine metrics.
func NewMyAudioMetrics(registry *prometheus.Registry) (*MyAudioMetrics, error) {
	m := &MyAudioMetrics{registry: registry}

	m.bufferWraparoundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myaudio_buffer_wraparounds_total",
			Help: "Total number of circular buffer wraparounds",
		},
		[]string{"source"},
	)

	m.bufferCapacityGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "myaudio_buffer_capacity_bytes",
			Help: "Circular buffer capacity in bytes",
		},
		[]string{"source"},
	)

	m.bufferWriteBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myaudio_buffer_write_bytes_total",
			Help: "Total bytes written to the circular buffer",
		},
		[]string{"source"},
	)

	m.captureCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myaudio_capture_cycles_total",
			Help: "Total number of recording task cycles",
		},
		[]string{"task", "status"}, // status: success, extract_error, resample_error, save_error
	)

	m.clipsSavedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myaudio_clips_saved_total",
			Help: "Total number of capture files written",
		},
		[]string{"task", "format"},
	)

	m.saveErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myaudio_save_errors_total",
			Help: "Total number of capture file write failures",
		},
		[]string{"task", "format"},
	)

	m.resampleErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "myaudio_resample_errors_total",
			Help: "Total number of downsampling failures",
		},
		[]string{"task"},
	)

	m.eventsTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "myaudio_events_triggered_total",
			Help: "Total number of threshold event triggers",
		},
	)

	m.deviceRestartsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "myaudio_device_restarts_total",
			Help: "Total number of capture device restart attempts",
		},
	)

	m.audioLevelGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "myaudio_audio_level",
			Help: "Current audio level scaled 0-100",
		},
		[]string{"source"},
	)

	collectors := []prometheus.Collector{
		m.bufferWraparoundsTotal,
		m.bufferCapacityGauge,
		m.bufferWriteBytesTotal,
		m.captureCyclesTotal,
		m.clipsSavedTotal,
		m.saveErrorsTotal,
		m.resampleErrors,
		m.eventsTriggeredTotal,
		m.deviceRestartsTotal,
		m.audioLevelGauge,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordBufferWraparound increments the wraparound counter by n.
func (m *MyAudioMetrics) RecordBufferWraparound(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bufferWraparoundsTotal.WithLabelValues(source).Add(float64(n))
}

// SetBufferCapacity records the buffer capacity in bytes.
func (m *MyAudioMetrics) SetBufferCapacity(source string, capacity int) {
	if m == nil {
		return
	}
	m.bufferCapacityGauge.WithLabelValues(source).Set(float64(capacity))
}

// RecordBufferWrite adds written byte count for a source.
func (m *MyAudioMetrics) RecordBufferWrite(source string, bytes int) {
	if m == nil {
		return
	}
	m.bufferWriteBytesTotal.WithLabelValues(source).Add(float64(bytes))
}

// RecordCaptureCycle counts one recording task cycle with its outcome.
func (m *MyAudioMetrics) RecordCaptureCycle(task, status string) {
	if m == nil {
		return
	}
	m.captureCyclesTotal.WithLabelValues(task, status).Inc()
}

// RecordClipSaved counts a successfully written capture file.
func (m *MyAudioMetrics) RecordClipSaved(task, format string) {
	if m == nil {
		return
	}
	m.clipsSavedTotal.WithLabelValues(task, format).Inc()
}

// RecordSaveError counts a capture file write failure.
func (m *MyAudioMetrics) RecordSaveError(task, format string) {
	if m == nil {
		return
	}
	m.saveErrorsTotal.WithLabelValues(task, format).Inc()
}

// RecordResampleError counts a downsampling failure.
func (m *MyAudioMetrics) RecordResampleError(task string) {
	if m == nil {
		return
	}
	m.resampleErrors.WithLabelValues(task).Inc()
}

// RecordEventTriggered counts a threshold event trigger.
func (m *MyAudioMetrics) RecordEventTriggered() {
	if m == nil {
		return
	}
	m.eventsTriggeredTotal.Inc()
}

// RecordDeviceRestart counts a capture device restart attempt.
func (m *MyAudioMetrics) RecordDeviceRestart() {
	if m == nil {
		return
	}
	m.deviceRestartsTotal.Inc()
}

// SetAudioLevel records the current scaled audio level.
func (m *MyAudioMetrics) SetAudioLevel(source string, level int) {
	if m == nil {
		return
	}
	m.audioLevelGauge.WithLabelValues(source).Set(float64(level))
}
