// this file exports PCM data to FLAC and MP3 through ffmpeg
package myaudio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/beehub/bmar-go/internal/errors"
)

// tempExt is the temporary extension used for atomic ffmpeg exports.
const tempExt = ".temp"

// ffmpegTimeout bounds a single export run.
const ffmpegTimeout = 2 * time.Minute

// exportWithFFmpeg pipes PCM into ffmpeg and writes the encoded file. The
// output appears atomically: ffmpeg writes to a temp path which is renamed
// only after a clean exit.
func (e *Encoder) exportWithFFmpeg(clip *Capture, format, outputPath string) error {
	if e.ffmpegPath == "" {
		return errors.Newf("ffmpeg path not configured, required for %s export", format).
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "create_export_directory").
			Build()
	}
	tempFilePath := outputPath + tempExt

	if err := e.runFFmpegCommand(clip, format, tempFilePath); err != nil {
		_ = os.Remove(tempFilePath)
		return err
	}

	if err := os.Rename(tempFilePath, outputPath); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "finalize_export").
			Build()
	}
	return nil
}

// runFFmpegCommand executes ffmpeg, feeding PCM through stdin.
func (e *Encoder) runFFmpegCommand(clip *Capture, format, tempFilePath string) error {
	ctx, cancel := context.WithTimeout(context.Background(), ffmpegTimeout)
	defer cancel()

	args := buildFFmpegArgs(clip, format, e.bitrate, tempFilePath)
	if e.debug {
		e.log.Debug("running ffmpeg", "path", e.ffmpegPath, "args", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "ffmpeg_stdin_pipe").
			Build()
	}

	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "ffmpeg_start").
			Build()
	}

	_, writeErr := stdin.Write(clip.PCM)
	closeErr := stdin.Close()

	if err := cmd.Wait(); err != nil {
		return errors.Newf("ffmpeg failed: %w, stderr: %s", err, lastLine(stderr.String())).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("format", format).
			Build()
	}
	if writeErr != nil {
		return errors.New(writeErr).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "ffmpeg_write_pcm").
			Build()
	}
	if closeErr != nil {
		return errors.New(closeErr).
			Component(component).
			Category(errors.CategoryFileIO).
			Context("operation", "ffmpeg_close_stdin").
			Build()
	}
	return nil
}

// buildFFmpegArgs constructs the ffmpeg argument list for one export.
func buildFFmpegArgs(clip *Capture, format, bitrate, tempFilePath string) []string {
	args := []string{
		"-f", ffmpegInputFormat(clip.BitDepth),
		"-ar", fmt.Sprintf("%d", clip.SampleRate),
		"-ac", fmt.Sprintf("%d", clip.Channels),
		"-i", "pipe:0",
		"-c:a", ffmpegEncoder(format),
	}
	if format == "mp3" && bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args,
		"-f", format,
		"-y",
		tempFilePath,
	)
	return args
}

// ffmpegInputFormat maps the capture bit depth to the raw input format flag.
func ffmpegInputFormat(bitDepth int) string {
	switch bitDepth {
	case 16:
		return "s16le"
	case 24:
		return "s24le"
	default:
		return "s32le"
	}
}

// ffmpegEncoder returns the codec name for the output format.
func ffmpegEncoder(format string) string {
	if format == "mp3" {
		return "libmp3lame"
	}
	return "flac"
}

// lastLine returns the final non-empty line of ffmpeg's stderr, which
// usually carries the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}
