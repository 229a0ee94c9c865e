package myaudio

import (
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type probeCall struct {
	device     string
	sampleRate int
}

// fakeProber scripts probe outcomes per device name and sample rate and
// records the order probes were attempted in.
type fakeProber struct {
	results map[string]ProbeResult // key "name@rate"
	calls   []probeCall
}

func (p *fakeProber) Probe(c *Candidate, sampleRate, channels, bitDepth int) (ProbeResult, error) {
	p.calls = append(p.calls, probeCall{device: c.Name, sampleRate: sampleRate})
	key := fmt.Sprintf("%s@%d", c.Name, sampleRate)
	res, ok := p.results[key]
	if !ok {
		return ProbeResult{}, fmt.Errorf("device %s rejected %d Hz", c.Name, sampleRate)
	}
	if res.Channels == 0 {
		res.Channels = channels
	}
	return res, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNegotiate_ConfiguredRateFirst(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: map[string]ProbeResult{
		"mic@192000": {SampleRate: 192000},
	}}
	n := NewNegotiator(prober, testLogger())

	cfg, err := n.Negotiate(
		[]Candidate{{Name: "mic"}},
		DeviceRequest{SampleRate: 192000, Channels: 2, BitDepth: 16},
	)
	require.NoError(t, err)
	assert.Equal(t, "mic", cfg.Name)
	assert.Equal(t, 192000, cfg.SampleRate)
	assert.Equal(t, 2, cfg.Channels)
	assert.Equal(t, 16, cfg.BitDepth)
	assert.Equal(t, []probeCall{{"mic", 192000}}, prober.calls)
}

func TestNegotiate_FallsBackToNativeRate(t *testing.T) {
	t.Parallel()

	// The configured rate fails, the native-rate probe (0) succeeds.
	prober := &fakeProber{results: map[string]ProbeResult{
		"mic@0": {SampleRate: 48000},
	}}
	n := NewNegotiator(prober, testLogger())

	cfg, err := n.Negotiate(
		[]Candidate{{Name: "mic"}},
		DeviceRequest{SampleRate: 192000, Channels: 2, BitDepth: 16},
	)
	require.NoError(t, err)
	assert.Equal(t, 48000, cfg.SampleRate)
	assert.Equal(t, []probeCall{{"mic", 192000}, {"mic", 0}}, prober.calls)
}

func TestNegotiate_ExhaustsRatesBeforeNextCandidate(t *testing.T) {
	t.Parallel()

	// The first device rejects everything; the second opens at the
	// fallback rate. Every rate of device one must be tried before device
	// two is touched.
	prober := &fakeProber{results: map[string]ProbeResult{
		"second@44100": {SampleRate: 44100},
	}}
	n := NewNegotiator(prober, testLogger())

	cfg, err := n.Negotiate(
		[]Candidate{{Name: "first"}, {Name: "second"}},
		DeviceRequest{SampleRate: 192000, Channels: 2, BitDepth: 16},
	)
	require.NoError(t, err)
	assert.Equal(t, "second", cfg.Name)
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, []probeCall{
		{"first", 192000}, {"first", 0}, {"first", 44100},
		{"second", 192000}, {"second", 0}, {"second", 44100},
	}, prober.calls)
}

func TestNegotiate_NoFallbackDuplicate(t *testing.T) {
	t.Parallel()

	// When the configured rate is already 44100 the fallback is not
	// retried as a third attempt.
	prober := &fakeProber{results: map[string]ProbeResult{}}
	n := NewNegotiator(prober, testLogger())

	_, err := n.Negotiate(
		[]Candidate{{Name: "mic"}},
		DeviceRequest{SampleRate: 44100, Channels: 2, BitDepth: 16},
	)
	require.Error(t, err)
	assert.Equal(t, []probeCall{{"mic", 44100}, {"mic", 0}}, prober.calls)
}

func TestNegotiate_ChannelsNeverRaised(t *testing.T) {
	t.Parallel()

	// The device reports 8 channels but only 2 were requested.
	prober := &fakeProber{results: map[string]ProbeResult{
		"mic@48000": {SampleRate: 48000, Channels: 8},
	}}
	n := NewNegotiator(prober, testLogger())

	cfg, err := n.Negotiate(
		[]Candidate{{Name: "mic"}},
		DeviceRequest{SampleRate: 48000, Channels: 2, BitDepth: 16},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Channels)
}

func TestNegotiate_ChannelsNarrowed(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: map[string]ProbeResult{
		"mono mic@48000": {SampleRate: 48000, Channels: 1},
	}}
	n := NewNegotiator(prober, testLogger())

	cfg, err := n.Negotiate(
		[]Candidate{{Name: "mono mic"}},
		DeviceRequest{SampleRate: 48000, Channels: 2, BitDepth: 16},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Channels)
}

func TestNegotiate_ExhaustedListIsFatal(t *testing.T) {
	t.Parallel()

	prober := &fakeProber{results: map[string]ProbeResult{}}
	n := NewNegotiator(prober, testLogger())

	_, err := n.Negotiate(
		[]Candidate{{Name: "a"}, {Name: "b"}},
		DeviceRequest{SampleRate: 192000, Channels: 2, BitDepth: 16},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoUsableDevice)
}

func TestNegotiate_EmptyCandidateList(t *testing.T) {
	t.Parallel()

	n := NewNegotiator(&fakeProber{}, testLogger())
	_, err := n.Negotiate(nil, DeviceRequest{SampleRate: 48000, Channels: 2, BitDepth: 16})
	assert.ErrorIs(t, err, ErrNoUsableDevice)
}

func TestOrderCandidates(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{Name: "HDMI Output"},
		{Name: "USB Microphone", IsDefault: true},
		{Name: "USB Audio CODEC"},
	}

	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"empty source picks default first", "", []string{"USB Microphone", "HDMI Output", "USB Audio CODEC"}},
		{"default alias", "default", []string{"USB Microphone", "HDMI Output", "USB Audio CODEC"}},
		{"exact name", "USB Audio CODEC", []string{"USB Audio CODEC", "HDMI Output", "USB Microphone"}},
		{"partial name matches both USB devices", "USB", []string{"USB Microphone", "USB Audio CODEC", "HDMI Output"}},
		{"no match keeps enumeration order", "Bluetooth", []string{"HDMI Output", "USB Microphone", "USB Audio CODEC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ordered := orderCandidates(candidates, tt.source)
			got := make([]string, len(ordered))
			for i := range ordered {
				got[i] = ordered[i].Name
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidateMatches(t *testing.T) {
	t.Parallel()

	c := &Candidate{Name: "USB Audio CODEC", ID: "hw:1,0", IsDefault: false}

	assert.True(t, candidateMatches(c, "USB Audio CODEC"))
	assert.True(t, candidateMatches(c, "hw:1,0"))
	assert.True(t, candidateMatches(c, "CODEC"))
	assert.False(t, candidateMatches(c, "default"))
	assert.False(t, candidateMatches(c, "Built-in"))

	def := &Candidate{Name: "Built-in", IsDefault: true}
	assert.True(t, candidateMatches(def, ""))
	assert.True(t, candidateMatches(def, "sysdefault"))
}

func TestHexToASCII(t *testing.T) {
	t.Parallel()

	got, err := hexToASCII("68773a312c3000000000")
	require.NoError(t, err)
	assert.Equal(t, "hw:1,0", got)

	_, err = hexToASCII("not-hex")
	assert.Error(t, err)
}

func TestMalgoFormat(t *testing.T) {
	t.Parallel()

	for _, depth := range []int{16, 24, 32} {
		_, err := malgoFormat(depth)
		assert.NoError(t, err)
	}
	_, err := malgoFormat(8)
	assert.Error(t, err)
}
