// this file implements integer-ratio downsampling for recording tasks
package myaudio

import (
	"github.com/beehub/bmar-go/internal/errors"
	"github.com/beehub/bmar-go/internal/myaudio/equalizer"
)

// Anti-aliasing low-pass parameters: cut-off at 0.45x the target rate,
// Butterworth Q, two passes for 24 dB/oct.
const (
	antiAliasCutoffRatio = 0.45
	antiAliasQ           = 0.707
	antiAliasPasses      = 2
)

// Downsampler reduces the sample rate of captured windows by an integer
// ratio, low-pass filtering each channel first to avoid aliasing.
type Downsampler struct {
	inputRate  int
	targetRate int
	channels   int
	bitDepth   int
	ratio      int
	filters    []*equalizer.Filter // one per channel
}

// NewDownsampler builds a downsampler from inputRate to targetRate. The
// ratio must be a whole number; anything else is a configuration error.
func NewDownsampler(inputRate, targetRate, channels, bitDepth int) (*Downsampler, error) {
	if targetRate <= 0 || inputRate <= 0 {
		return nil, errors.Newf("invalid sample rates: %d -> %d", inputRate, targetRate).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if targetRate >= inputRate {
		return nil, errors.Newf("target rate %d must be below input rate %d", targetRate, inputRate).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if inputRate%targetRate != 0 {
		return nil, errors.Newf("target rate %d is not an integer divisor of input rate %d", targetRate, inputRate).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}

	filters := make([]*equalizer.Filter, channels)
	cutoff := antiAliasCutoffRatio * float64(targetRate)
	for ch := range filters {
		f, err := equalizer.NewLowPass(float64(inputRate), cutoff, antiAliasQ, antiAliasPasses)
		if err != nil {
			return nil, errors.New(err).
				Component(component).
				Category(errors.CategoryConfiguration).
				Context("operation", "build_antialias_filter").
				Build()
		}
		filters[ch] = f
	}

	return &Downsampler{
		inputRate:  inputRate,
		targetRate: targetRate,
		channels:   channels,
		bitDepth:   bitDepth,
		ratio:      inputRate / targetRate,
		filters:    filters,
	}, nil
}

// Ratio returns the decimation ratio.
func (d *Downsampler) Ratio() int { return d.ratio }

// TargetRate returns the output sample rate.
func (d *Downsampler) TargetRate() int { return d.targetRate }

// Process filters and decimates one captured window of interleaved PCM.
// Each window is processed independently: filter state is reset so windows
// do not bleed into each other.
func (d *Downsampler) Process(pcm []byte) ([]byte, error) {
	frameBytes := d.channels * bytesPerSample(d.bitDepth)
	if len(pcm)%frameBytes != 0 {
		return nil, errors.Newf("PCM length %d not aligned to frame size %d", len(pcm), frameBytes).
			Component(component).
			Category(errors.CategoryAudio).
			Build()
	}

	frames := len(pcm) / frameBytes
	outFrames := frames / d.ratio
	out := make([]byte, outFrames*frameBytes)

	channelBuf := make([]float64, frames)
	for ch := 0; ch < d.channels; ch++ {
		for f := 0; f < frames; f++ {
			channelBuf[f] = float64(readSample(pcm, f*d.channels+ch, d.bitDepth))
		}

		d.filters[ch].Reset()
		d.filters[ch].ApplyBatch(channelBuf)

		for of := 0; of < outFrames; of++ {
			v := clampSample(channelBuf[of*d.ratio], d.bitDepth)
			writeSample(out, of*d.channels+ch, d.bitDepth, v)
		}
	}

	return out, nil
}
