// this file implements capture device enumeration and negotiation
package myaudio

import (
	"encoding/hex"
	"log/slog"
	"runtime"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/beehub/bmar-go/internal/errors"
)

// fallbackSampleRate is the last rate tried for every candidate device.
const fallbackSampleRate = 44100

// DeviceRequest is the configured capture format the negotiator tries to
// satisfy.
type DeviceRequest struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// Candidate is one enumerated capture device offered to the negotiator.
type Candidate struct {
	Name      string
	ID        string // decoded device ID
	IsDefault bool

	deviceID malgo.DeviceID
	hasID    bool
}

// DeviceConfig is the negotiated capture configuration. SampleRate and
// Channels carry what the device actually opened with, never the request.
type DeviceConfig struct {
	Name       string
	ID         string
	SampleRate int
	Channels   int
	BitDepth   int

	deviceID malgo.DeviceID
	hasID    bool
}

// ProbeResult reports the format a test stream actually opened with.
type ProbeResult struct {
	SampleRate int
	Channels   int
}

// StreamProber opens a short-lived test stream on a candidate device.
// sampleRate 0 asks for the device's native rate. The real implementation
// talks to malgo; tests substitute a fake.
type StreamProber interface {
	Probe(c *Candidate, sampleRate, channels, bitDepth int) (ProbeResult, error)
}

// Negotiator walks an ordered candidate list and finds the first device and
// rate that open successfully.
type Negotiator struct {
	prober       StreamProber
	fallbackRate int
	log          *slog.Logger
}

// NewNegotiator creates a negotiator using the given prober.
func NewNegotiator(prober StreamProber, logger *slog.Logger) *Negotiator {
	if logger == nil {
		logger = getLogger()
	}
	return &Negotiator{
		prober:       prober,
		fallbackRate: fallbackSampleRate,
		log:          logger,
	}
}

// Negotiate tries each candidate in order. Per candidate it attempts the
// configured rate, then the device's native rate, then the 44100 Hz
// fallback if not already tried. The first successful test stream decides.
// The returned config carries the actually negotiated rate and a channel
// count never raised above what the device supports. An exhausted list is
// fatal: ErrNoUsableDevice.
func (n *Negotiator) Negotiate(candidates []Candidate, req DeviceRequest) (DeviceConfig, error) {
	for i := range candidates {
		c := &candidates[i]

		rates := []int{req.SampleRate, 0}
		if n.fallbackRate != req.SampleRate {
			rates = append(rates, n.fallbackRate)
		}

		for _, rate := range rates {
			res, err := n.prober.Probe(c, rate, req.Channels, req.BitDepth)
			if err != nil {
				n.log.Debug("device probe failed",
					"device", c.Name,
					"sample_rate", rate,
					"error", err)
				continue
			}

			channels := res.Channels
			if channels > req.Channels {
				channels = req.Channels
			}
			if channels < req.Channels {
				n.log.Warn("device supports fewer channels than requested, narrowing",
					"device", c.Name,
					"requested", req.Channels,
					"using", channels)
			}
			if res.SampleRate != req.SampleRate {
				n.log.Warn("device opened at a different sample rate than requested",
					"device", c.Name,
					"requested", req.SampleRate,
					"negotiated", res.SampleRate)
			}

			return DeviceConfig{
				Name:       c.Name,
				ID:         c.ID,
				SampleRate: res.SampleRate,
				Channels:   channels,
				BitDepth:   req.BitDepth,
				deviceID:   c.deviceID,
				hasID:      c.hasID,
			}, nil
		}
	}

	return DeviceConfig{}, errors.New(ErrNoUsableDevice).
		Component(component).
		Category(errors.CategoryAudioSource).
		Context("candidates", len(candidates)).
		Context("requested_rate", req.SampleRate).
		Build()
}

// malgoProber opens real test streams through an existing malgo context.
type malgoProber struct {
	ctx *malgo.AllocatedContext
}

func (p *malgoProber) Probe(c *Candidate, sampleRate, channels, bitDepth int) (ProbeResult, error) {
	format, err := malgoFormat(bitDepth)
	if err != nil {
		return ProbeResult{}, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = format
	deviceConfig.Capture.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if c.hasID {
		deviceConfig.Capture.DeviceID = c.deviceID.Pointer()
	}

	device, err := malgo.InitDevice(p.ctx.Context, deviceConfig, malgo.DeviceCallbacks{})
	if err != nil {
		return ProbeResult{}, err
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return ProbeResult{}, err
	}
	result := ProbeResult{
		SampleRate: int(device.SampleRate()),
		Channels:   int(device.CaptureChannels()),
	}
	_ = device.Stop()

	return result, nil
}

// malgoFormat maps a bit depth to the malgo sample format. All formats are
// little-endian signed integer PCM.
func malgoFormat(bitDepth int) (malgo.FormatType, error) {
	switch bitDepth {
	case 16:
		return malgo.FormatS16, nil
	case 24:
		return malgo.FormatS24, nil
	case 32:
		return malgo.FormatS32, nil
	default:
		return malgo.FormatUnknown, errors.Newf("unsupported bit depth: %d", bitDepth).
			Component(component).
			Category(errors.CategoryValidation).
			Build()
	}
}

// getBackendForPlatform returns the malgo backend for the current platform.
func getBackendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.Newf("unsupported operating system: %s", runtime.GOOS).
			Component(component).
			Category(errors.CategoryAudioSource).
			Build()
	}
}

// enumerateCandidates lists capture devices through an existing context,
// skipping the null device.
func enumerateCandidates(ctx *malgo.AllocatedContext) ([]Candidate, error) {
	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryAudioSource).
			Context("operation", "enumerate_devices").
			Build()
	}

	candidates := make([]Candidate, 0, len(infos))
	for i := range infos {
		if strings.Contains(infos[i].Name(), "Discard all samples") {
			continue
		}
		decodedID, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			decodedID = infos[i].ID.String()
		}
		candidates = append(candidates, Candidate{
			Name:      infos[i].Name(),
			ID:        decodedID,
			IsDefault: infos[i].IsDefault == 1,
			deviceID:  infos[i].ID,
			hasID:     true,
		})
	}
	return candidates, nil
}

// orderCandidates puts candidates matching the configured source first,
// preserving enumeration order inside each group. The negotiator then falls
// back to the remaining devices.
func orderCandidates(candidates []Candidate, source string) []Candidate {
	matched := make([]Candidate, 0, len(candidates))
	rest := make([]Candidate, 0, len(candidates))
	for i := range candidates {
		if candidateMatches(&candidates[i], source) {
			matched = append(matched, candidates[i])
		} else {
			rest = append(rest, candidates[i])
		}
	}
	return append(matched, rest...)
}

// candidateMatches checks a device against the configured source string:
// default alias, exact name, decoded ID, or partial name.
func candidateMatches(c *Candidate, source string) bool {
	if source == "" || source == "default" || source == "sysdefault" {
		return c.IsDefault
	}
	return c.Name == source || c.ID == source || strings.Contains(c.Name, source)
}

// hexToASCII converts a hexadecimal string to an ASCII string
func hexToASCII(hexStr string) (string, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}

// AudioDeviceInfo describes one capture device for listing.
type AudioDeviceInfo struct {
	Index     int
	Name      string
	ID        string
	IsDefault bool
}

// ListCaptureDevices enumerates the capture devices visible to the platform
// backend. It opens and tears down its own context.
func ListCaptureDevices() ([]AudioDeviceInfo, error) {
	backend, err := getBackendForPlatform()
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component(component).
			Category(errors.CategoryAudioSource).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}
	defer func() { _ = ctx.Uninit() }()

	candidates, err := enumerateCandidates(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]AudioDeviceInfo, 0, len(candidates))
	for i := range candidates {
		devices = append(devices, AudioDeviceInfo{
			Index:     i,
			Name:      candidates[i].Name,
			ID:        candidates[i].ID,
			IsDefault: candidates[i].IsDefault,
		})
	}
	return devices, nil
}
