package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMyAudioMetrics_Registers(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMyAudioMetrics(registry)
	require.NoError(t, err)
	require.NotNil(t, m)

	// Registering the same collectors twice must fail.
	_, err = NewMyAudioMetrics(registry)
	assert.Error(t, err)
}

func TestMyAudioMetrics_Recorders(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewMyAudioMetrics(registry)
	require.NoError(t, err)

	m.RecordBufferWraparound("hw:1,0", 2)
	m.RecordBufferWraparound("hw:1,0", 0) // non-positive is ignored
	assert.Equal(t, 2.0, testutil.ToFloat64(m.bufferWraparoundsTotal.WithLabelValues("hw:1,0")))

	m.SetBufferCapacity("hw:1,0", 1024)
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bufferCapacityGauge.WithLabelValues("hw:1,0")))

	m.RecordBufferWrite("hw:1,0", 512)
	m.RecordBufferWrite("hw:1,0", 512)
	assert.Equal(t, 1024.0, testutil.ToFloat64(m.bufferWriteBytesTotal.WithLabelValues("hw:1,0")))

	m.RecordCaptureCycle("period", "success")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captureCyclesTotal.WithLabelValues("period", "success")))

	m.RecordClipSaved("period", "flac")
	m.RecordSaveError("monitor", "mp3")
	m.RecordResampleError("monitor")
	m.RecordEventTriggered()
	m.RecordDeviceRestart()
	m.SetAudioLevel("hw:1,0", 42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTriggeredTotal))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.audioLevelGauge.WithLabelValues("hw:1,0")))
}

func TestMyAudioMetrics_NilSafe(t *testing.T) {
	t.Parallel()

	var m *MyAudioMetrics
	m.RecordBufferWraparound("x", 1)
	m.SetBufferCapacity("x", 1)
	m.RecordBufferWrite("x", 1)
	m.RecordCaptureCycle("x", "success")
	m.RecordClipSaved("x", "wav")
	m.RecordSaveError("x", "wav")
	m.RecordResampleError("x")
	m.RecordEventTriggered()
	m.RecordDeviceRestart()
	m.SetAudioLevel("x", 1)
}
