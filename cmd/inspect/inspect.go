// Package inspect implements the capture file inspection command.
package inspect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beehub/bmar-go/internal/conf"
	"github.com/beehub/bmar-go/internal/myaudio"
)

// Command creates the file inspection command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show format details of a saved capture file (WAV or FLAC)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(args[0])
		},
	}
}

func runInspect(path string) error {
	info, err := myaudio.ReadAudioInfo(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	fmt.Printf("File:         %s\n", path)
	fmt.Printf("Sample rate:  %d Hz\n", info.SampleRate)
	fmt.Printf("Channels:     %d\n", info.NumChannels)
	fmt.Printf("Bit depth:    %d\n", info.BitDepth)
	fmt.Printf("Samples:      %d\n", info.TotalSamples)
	fmt.Printf("Duration:     %s\n", info.Duration())
	return nil
}
