package myaudio

import (
	"math"
)

// AudioLevelData holds the scaled audio level reported for a capture source.
type AudioLevelData struct {
	Level    int    `json:"level"`    // level scaled 0-100
	Clipping bool   `json:"clipping"` // true if the signal appears to be clipping
	Source   string `json:"source"`   // device identifier
	Name     string `json:"name"`     // human friendly name
}

// calculateAudioLevel computes the RMS level of a block of interleaved PCM
// data, scaled to 0-100 with a clipping flag. The scale maps -60 dBFS to 0
// and -10 dBFS to 100; clipping pins the level at 95 or above.
func calculateAudioLevel(samples []byte, bitDepth int, source, name string) AudioLevelData {
	n := sampleCount(samples, bitDepth)
	if n == 0 {
		return AudioLevelData{Level: 0, Clipping: false, Source: source, Name: name}
	}

	scale := fullScale(bitDepth)
	var sum float64
	isClipping := false

	for i := 0; i < n; i++ {
		v := float64(readSample(samples, i, bitDepth))
		sum += v * v
		if v >= scale-1 || v <= -scale {
			isClipping = true
		}
	}

	rms := math.Sqrt(sum / float64(n))
	db := 20 * math.Log10(rms/scale)

	scaledLevel := (db + 60) * (100.0 / 50.0)
	if isClipping {
		scaledLevel = math.Max(scaledLevel, 95)
	}
	if scaledLevel < 0 {
		scaledLevel = 0
	} else if scaledLevel > 100 {
		scaledLevel = 100
	}

	return AudioLevelData{
		Level:    int(scaledLevel),
		Clipping: isClipping,
		Source:   source,
		Name:     name,
	}
}

// peakAmplitude returns the largest absolute sample of one channel in a
// block of interleaved PCM data, normalized to full scale (0.0 to 1.0).
// This is the measure the event detector compares against its threshold.
func peakAmplitude(samples []byte, channels, bitDepth, channel int) float64 {
	sb := bytesPerSample(bitDepth)
	frames := len(samples) / (channels * sb)
	if frames == 0 {
		return 0
	}

	scale := fullScale(bitDepth)
	var peak float64
	for f := 0; f < frames; f++ {
		v := math.Abs(float64(readSample(samples, f*channels+channel, bitDepth)))
		if v > peak {
			peak = v
		}
	}
	return peak / scale
}

// dbfsToLinear converts a dBFS value to a linear amplitude in 0.0 to 1.0.
func dbfsToLinear(dbfs float64) float64 {
	return math.Pow(10, dbfs/20)
}
