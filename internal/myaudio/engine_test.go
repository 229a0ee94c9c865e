package myaudio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestOnDeviceStop_NoRestartAfterShutdown covers the restart goroutine
// racing a shutdown: a stop callback that fires while the engine is
// running schedules a delayed restart, and a teardown completing before
// the delay elapses must make that restart a no-op instead of a call into
// a freed device.
func TestOnDeviceStop_NoRestartAfterShutdown(t *testing.T) {
	t.Parallel()

	e := &AudioEngine{log: testLogger(), dev: DeviceConfig{Name: "test"}}

	// Stopped engine: the callback is teardown fallout, nothing scheduled.
	e.onDeviceStop()

	e.running.Store(true)
	e.onDeviceStop()
	e.running.Store(false)

	// Let the restart delay elapse; the goroutine must bail out under
	// deviceMu without touching the device.
	time.Sleep(1100 * time.Millisecond)
	e.deviceMu.Lock()
	assert.Nil(t, e.device)
	e.deviceMu.Unlock()
}

func TestFrameDeficit(t *testing.T) {
	t.Parallel()

	e := &AudioEngine{dev: DeviceConfig{SampleRate: 48000}}
	expected := int64(statusInterval/time.Second) * 48000

	assert.False(t, e.frameDeficit(expected))
	assert.False(t, e.frameDeficit(expected*96/100))
	assert.True(t, e.frameDeficit(expected*90/100))
	assert.True(t, e.frameDeficit(0))
}
