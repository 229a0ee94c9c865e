// Package devices implements the capture device listing command.
package devices

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/beehub/bmar-go/internal/conf"
	"github.com/beehub/bmar-go/internal/myaudio"
)

// Command creates the device listing command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List available audio capture devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(settings)
		},
	}
}

func runDevices(settings *conf.Settings) error {
	devices, err := myaudio.ListCaptureDevices()
	if err != nil {
		return fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No capture devices found")
		return nil
	}

	fmt.Printf("Found %d capture device(s):\n", len(devices))
	for _, d := range devices {
		marker := " "
		if d.IsDefault {
			marker = "*"
		}
		fmt.Printf("%s [%d] %s (ID: %s)\n", marker, d.Index, d.Name, d.ID)
	}
	fmt.Println("\n* = system default; configured source:", settings.Realtime.Capture.Source)
	return nil
}
