package myaudio

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/beehub/bmar-go/internal/conf"
	"github.com/beehub/bmar-go/internal/errors"
)

// Capture is one extracted window of PCM audio handed to a file sink.
type Capture struct {
	PCM        []byte
	SampleRate int
	Channels   int
	BitDepth   int
}

// FileSink writes a capture to disk in the requested format. Encoding is a
// collaborator behind this interface: the recording workers and the event
// detector never know how files are produced.
type FileSink interface {
	Save(clip *Capture, format, outputPath string) error
}

// Encoder is the bundled FileSink: WAV natively, FLAC and MP3 through
// ffmpeg.
type Encoder struct {
	ffmpegPath string
	bitrate    string
	debug      bool
	log        *slog.Logger
}

// NewEncoder creates an encoder from the export settings.
func NewEncoder(settings *conf.ExportSettings, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = getLogger()
	}
	return &Encoder{
		ffmpegPath: settings.FfmpegPath,
		bitrate:    settings.Bitrate,
		debug:      settings.Debug,
		log:        logger,
	}
}

// Save writes the capture to outputPath in the given format.
func (e *Encoder) Save(clip *Capture, format, outputPath string) error {
	switch strings.ToLower(format) {
	case "wav":
		return SavePCMDataToWAV(outputPath, clip)
	case "flac", "mp3":
		return e.exportWithFFmpeg(clip, strings.ToLower(format), outputPath)
	default:
		return errors.Newf("unsupported export format: %s", format).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// SavePCMDataToWAV saves the capture as a WAV file at filePath.
func SavePCMDataToWAV(filePath string, clip *Capture) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "create_export_directory").
			Build()
	}

	outFile, err := os.Create(filePath)
	if err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "create_wav_file").
			Build()
	}
	defer outFile.Close()

	enc := wav.NewEncoder(outFile, clip.SampleRate, clip.BitDepth, clip.Channels, 1)

	intSamples := byteSliceToInts(clip.PCM, clip.BitDepth)
	buf := &audio.IntBuffer{
		Data:           intSamples,
		Format:         &audio.Format{SampleRate: clip.SampleRate, NumChannels: clip.Channels},
		SourceBitDepth: clip.BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "write_wav_data").
			Build()
	}

	return enc.Close()
}
