// this file implements the capture engine owning the device, buffer and tasks
package myaudio

import (
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/beehub/bmar-go/internal/conf"
	"github.com/beehub/bmar-go/internal/errors"
	"github.com/beehub/bmar-go/internal/observability/metrics"
)

// statusInterval is how often the engine logs buffer health.
const statusInterval = 30 * time.Second

// AudioEngine owns the negotiated capture device, the circular buffer, the
// recording workers, the event detector and the live tap. All state is
// injected and scoped to the engine; there are no package-level buffers.
type AudioEngine struct {
	settings *conf.Settings
	metrics  *metrics.MyAudioMetrics
	log      *slog.Logger

	ctx *malgo.AllocatedContext
	dev DeviceConfig

	deviceMu sync.Mutex
	device   *malgo.Device // guarded by deviceMu once started

	buffer   *CaptureBuffer
	sink     FileSink
	workers  []*RecordingWorker
	detector *EventDetector
	tap      *LiveTap

	levelChan chan AudioLevelData
	lastLevel atomic.Int32

	stopChan   chan struct{}
	wg         sync.WaitGroup
	running    atomic.Bool
	lastWraps  uint64
	lastWrites int64
}

// NewAudioEngine enumerates devices, negotiates the capture format and
// builds the buffer, sink, workers and detector. Construction failures are
// fatal configuration or device errors; nothing has started yet.
func NewAudioEngine(settings *conf.Settings, m *metrics.MyAudioMetrics) (*AudioEngine, error) {
	logger := getLogger()

	backend, err := getBackendForPlatform()
	if err != nil {
		return nil, err
	}

	malgoCtx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, func(message string) {
		logger.Debug("malgo", "message", strings.TrimSpace(message))
	})
	if err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}

	engine, err := buildEngine(settings, m, logger, malgoCtx)
	if err != nil {
		_ = malgoCtx.Uninit()
		return nil, err
	}
	return engine, nil
}

func buildEngine(settings *conf.Settings, m *metrics.MyAudioMetrics, logger *slog.Logger, malgoCtx *malgo.AllocatedContext) (*AudioEngine, error) {
	capture := &settings.Realtime.Capture

	candidates, err := enumerateCandidates(malgoCtx)
	if err != nil {
		return nil, err
	}
	candidates = orderCandidates(candidates, capture.Source)

	negotiator := NewNegotiator(&malgoProber{ctx: malgoCtx}, logger)
	dev, err := negotiator.Negotiate(candidates, DeviceRequest{
		SampleRate: capture.SampleRate,
		Channels:   capture.Channels,
		BitDepth:   capture.BitDepth,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("capture device negotiated",
		"device", dev.Name,
		"sample_rate", dev.SampleRate,
		"channels", dev.Channels,
		"bit_depth", dev.BitDepth)

	buffer, err := NewCaptureBuffer(capture.BufferSeconds, dev.SampleRate, dev.Channels, dev.BitDepth)
	if err != nil {
		return nil, err
	}
	m.SetBufferCapacity(dev.ID, int(buffer.Capacity())*buffer.FrameBytes())

	engine := &AudioEngine{
		settings:  settings,
		metrics:   m,
		log:       logger,
		ctx:       malgoCtx,
		dev:       dev,
		buffer:    buffer,
		sink:      NewEncoder(&settings.Realtime.Export, logger),
		tap:       NewLiveTap(),
		levelChan: make(chan AudioLevelData, 10),
		stopChan:  make(chan struct{}),
	}

	if err := engine.buildWorkers(); err != nil {
		return nil, err
	}
	if err := engine.buildDetector(); err != nil {
		return nil, err
	}
	return engine, nil
}

// buildWorkers creates the period and monitor workers from config.
func (e *AudioEngine) buildWorkers() error {
	tasks := []struct {
		name     string
		settings *conf.RecorderSettings
	}{
		{"period", &e.settings.Realtime.Period},
		{"monitor", &e.settings.Realtime.Monitor},
	}

	for _, task := range tasks {
		if !task.settings.Enabled {
			continue
		}
		active, err := conf.ParseActiveWindow(task.settings.Start, task.settings.End)
		if err != nil {
			return errors.New(err).
				Component(component).
				Category(errors.CategoryConfiguration).
				Context("task", task.name).
				Build()
		}
		spec := RecordingSpec{
			Task:             task.name,
			CaptureDuration:  time.Duration(task.settings.Record * float64(time.Second)),
			Interval:         time.Duration(task.settings.Interval * float64(time.Second)),
			Format:           task.settings.Format,
			TargetSampleRate: task.settings.SampleRate,
			Active:           active,
			LocationID:       e.settings.Main.LocationID,
			HiveID:           e.settings.Main.HiveID,
			OutputDir:        e.settings.Realtime.Export.Path,
		}
		worker, err := NewRecordingWorker(spec, e.buffer, e.dev, e.sink, e.metrics, e.log)
		if err != nil {
			return err
		}
		e.workers = append(e.workers, worker)
	}
	return nil
}

// buildDetector creates the event detector if event capture is enabled.
func (e *AudioEngine) buildDetector() error {
	ev := &e.settings.Realtime.Event
	if !ev.Enabled {
		return nil
	}
	active, err := conf.ParseActiveWindow(ev.Start, ev.End)
	if err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryConfiguration).
			Context("task", "event").
			Build()
	}
	spec := EventSpec{
		ThresholdDBFS: ev.Threshold,
		TimeBefore:    time.Duration(ev.TimeBefore * float64(time.Second)),
		TimeAfter:     time.Duration(ev.TimeAfter * float64(time.Second)),
		Channel:       ev.Channel,
		Format:        ev.Format,
		Active:        active,
		LocationID:    e.settings.Main.LocationID,
		HiveID:        e.settings.Main.HiveID,
		OutputDir:     e.settings.Realtime.Export.Path,
	}
	e.detector, err = NewEventDetector(spec, e.buffer, e.dev, e.sink, e.metrics, e.log)
	return err
}

// Start opens the capture device and launches the workers, detector and
// status loop.
func (e *AudioEngine) Start() error {
	if e.running.Load() {
		return errors.Newf("engine already running").
			Component(component).
			Category(errors.CategoryState).
			Build()
	}

	format, err := malgoFormat(e.dev.BitDepth)
	if err != nil {
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = uint32(e.dev.Channels)
	deviceConfig.SampleRate = uint32(e.dev.SampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if e.dev.hasID {
		deviceConfig.Capture.DeviceID = e.dev.deviceID.Pointer()
	}

	device, err := malgo.InitDevice(e.ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: e.onReceiveFrames,
		Stop: e.onDeviceStop,
	})
	if err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryAudioSource).
			Context("operation", "init_device").
			Context("device", e.dev.Name).
			Build()
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return errors.New(err).
			Component(component).
			Category(errors.CategoryAudioSource).
			Context("operation", "start_device").
			Context("device", e.dev.Name).
			Build()
	}
	e.deviceMu.Lock()
	e.device = device
	e.deviceMu.Unlock()

	e.running.Store(true)
	e.log.Info("audio capture started",
		"device", e.dev.Name,
		"buffer_duration", e.buffer.Duration())

	for _, worker := range e.workers {
		e.wg.Add(1)
		go func(w *RecordingWorker) {
			defer e.wg.Done()
			w.Run(e.stopChan)
		}(worker)
	}
	if e.detector != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.detector.Run(e.stopChan)
		}()
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.statusLoop()
	}()

	return nil
}

// Stop halts the workers, the detector and the capture device, in that
// order, then tears down the malgo context. Safe to call once.
func (e *AudioEngine) Stop() {
	if !e.running.Load() {
		return
	}
	e.running.Store(false)

	close(e.stopChan)
	e.wg.Wait()

	e.deviceMu.Lock()
	if e.device != nil {
		_ = e.device.Stop()
		e.device.Uninit()
		e.device = nil
	}
	e.deviceMu.Unlock()
	if e.ctx != nil {
		_ = e.ctx.Uninit()
		e.ctx = nil
	}

	e.log.Info("audio capture stopped")
}

// onReceiveFrames is the realtime device callback. It writes to the ring,
// feeds the event detector and the level channel, and fans out to the live
// tap. No logging, no blocking.
func (e *AudioEngine) onReceiveFrames(_, pSamples []byte, _ uint32) {
	index := e.buffer.Write(pSamples)

	if e.detector != nil {
		peak := peakAmplitude(pSamples, e.dev.Channels, e.dev.BitDepth, e.detector.spec.Channel)
		e.detector.Notify(peak, index)
	}

	level := calculateAudioLevel(pSamples, e.dev.BitDepth, e.dev.ID, e.dev.Name)
	e.lastLevel.Store(int32(level.Level))
	select {
	case e.levelChan <- level:
	default:
		// Channel full: drop the oldest reading and try once more
		select {
		case <-e.levelChan:
		default:
		}
		select {
		case e.levelChan <- level:
		default:
		}
	}

	e.tap.Publish(pSamples)
}

// onDeviceStop fires when the device stops outside our control. One
// restart is attempted after a short delay. The restart serializes with
// Stop on deviceMu so it never touches a device that has been torn down.
func (e *AudioEngine) onDeviceStop() {
	if !e.running.Load() {
		return
	}
	e.log.Warn("capture device stopped unexpectedly, attempting restart", "device", e.dev.Name)

	go func() {
		time.Sleep(time.Second)

		e.deviceMu.Lock()
		defer e.deviceMu.Unlock()
		if !e.running.Load() || e.device == nil {
			return
		}
		e.metrics.RecordDeviceRestart()
		if err := e.device.Start(); err != nil {
			e.log.Error("capture device restart failed", "device", e.dev.Name, "error", err)
		}
	}()
}

// statusLoop periodically reports buffer health and pushes slow-path
// metrics the callback must not touch.
func (e *AudioEngine) statusLoop() {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			wraps := e.buffer.WrapCount()
			if delta := wraps - e.lastWraps; delta > 0 {
				e.metrics.RecordBufferWraparound(e.dev.ID, int(delta))
				e.log.Info("circular buffer wrapped",
					"wraps", wraps,
					"write_index", e.buffer.WriteIndex())
				e.lastWraps = wraps
			}
			if misaligned := e.buffer.MisalignedWrites(); misaligned > 0 {
				e.log.Warn("misaligned audio writes observed", "count", misaligned)
			}
			writeIndex := e.buffer.WriteIndex()
			delta := writeIndex - e.lastWrites
			if delta > 0 {
				e.metrics.RecordBufferWrite(e.dev.ID, int(delta)*e.buffer.FrameBytes())
			}
			if e.frameDeficit(delta) {
				e.log.Warn("capture produced fewer frames than the device rate implies, possible driver overflow",
					"expected_frames", int64(statusInterval/time.Second)*int64(e.dev.SampleRate),
					"got_frames", delta)
			}
			e.lastWrites = writeIndex
			e.metrics.SetAudioLevel(e.dev.ID, int(e.lastLevel.Load()))
		}
	}
}

// frameDeficit reports whether the frames produced over one status interval
// fall short of what the negotiated sample rate implies. malgo exposes no
// overflow flag in the data callback, so a sustained deficit is the signal
// that the driver dropped data or the device stalled.
func (e *AudioEngine) frameDeficit(delta int64) bool {
	expected := int64(statusInterval/time.Second) * int64(e.dev.SampleRate)
	return delta < expected*95/100
}

// DeviceConfig returns the negotiated capture configuration.
func (e *AudioEngine) DeviceConfig() DeviceConfig {
	return e.dev
}

// Levels returns the audio level channel fed from the capture callback.
func (e *AudioEngine) Levels() <-chan AudioLevelData {
	return e.levelChan
}

// Subscribe attaches a live tap consumer with the given buffer depth.
func (e *AudioEngine) Subscribe(depth int) *TapSubscription {
	return e.tap.Subscribe(depth)
}

// GetWindow snapshots the most recent d of audio. channel selects one
// channel of the interleaved data; pass -1 for all channels.
func (e *AudioEngine) GetWindow(d time.Duration, channel int) ([]byte, error) {
	end := e.buffer.WriteIndex()
	start := end - durationToFrames(d, e.dev.SampleRate)

	pcm, err := ExtractWindow(e.buffer, start, end)
	if err != nil {
		return nil, err
	}
	if channel < 0 || e.dev.Channels == 1 {
		return pcm, nil
	}
	if channel >= e.dev.Channels {
		return nil, errors.Newf("channel %d out of range for %d channels", channel, e.dev.Channels).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}
	return selectChannel(pcm, e.dev.Channels, e.dev.BitDepth, channel), nil
}
