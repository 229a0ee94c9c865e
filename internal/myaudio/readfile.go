// this file reads metadata from saved capture files for inspection
package myaudio

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/tphakala/flac"

	"github.com/beehub/bmar-go/internal/errors"
)

// AudioInfo describes a saved capture file.
type AudioInfo struct {
	SampleRate   int
	TotalSamples int
	NumChannels  int
	BitDepth     int
}

// Duration returns the playing time of the file.
func (i AudioInfo) Duration() time.Duration {
	if i.SampleRate == 0 {
		return 0
	}
	return time.Duration(i.TotalSamples) * time.Second / time.Duration(i.SampleRate)
}

// ReadAudioInfo opens a WAV or FLAC capture file and returns its format
// metadata. MP3 captures carry no sample-accurate header and are not
// supported here.
func ReadAudioInfo(path string) (AudioInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return AudioInfo{}, errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "open_audio_file").
			Build()
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return readWAVInfo(file)
	case ".flac":
		return readFLACInfo(file)
	default:
		return AudioInfo{}, errors.Newf("unsupported file type: %s", filepath.Ext(path)).
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}
}

func readWAVInfo(file *os.File) (AudioInfo, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return AudioInfo{}, errors.NewStd("invalid WAV file format")
	}

	switch decoder.BitDepth {
	case 16, 24, 32:
	default:
		return AudioInfo{}, errors.Newf("unsupported bit depth: %d", decoder.BitDepth).
			Component(component).
			Category(errors.CategoryFileParsing).
			Build()
	}

	// Count samples from the data chunk; headers and ancillary chunks are
	// not audio.
	if err := decoder.FwdToPCM(); err != nil {
		return AudioInfo{}, errors.New(err).
			Component(component).
			Category(errors.CategoryFileParsing).
			Context("operation", "locate_pcm_chunk").
			Build()
	}

	sampleBytes := int(decoder.BitDepth / 8)
	totalSamples := int(decoder.PCMLen()) / sampleBytes / int(decoder.NumChans)

	return AudioInfo{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

func readFLACInfo(file *os.File) (AudioInfo, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return AudioInfo{}, errors.New(err).
			Component(component).
			Category(errors.CategoryFileParsing).
			Context("operation", "decode_flac").
			Build()
	}

	return AudioInfo{
		SampleRate:   decoder.SampleRate,
		TotalSamples: int(decoder.TotalSamples),
		NumChannels:  decoder.NChannels,
		BitDepth:     decoder.BitsPerSample,
	}, nil
}
