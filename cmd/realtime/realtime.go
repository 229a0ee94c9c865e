// Package realtime implements the capture command running the audio engine
// until interrupted.
package realtime

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/beehub/bmar-go/internal/conf"
	"github.com/beehub/bmar-go/internal/logging"
	"github.com/beehub/bmar-go/internal/myaudio"
	"github.com/beehub/bmar-go/internal/observability"
)

// Command creates the realtime capture command.
func Command(settings *conf.Settings) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "realtime",
		Short: "Capture audio continuously with scheduled recordings and event detection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRealtime(settings, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "Expose Prometheus metrics on this address, e.g. :9090")

	return cmd
}

func runRealtime(settings *conf.Settings, metricsAddr string) error {
	log := logging.ForService("realtime")

	// Long-running capture keeps its own rotated log file when configured.
	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLog, closeLog, err := logging.NewFileLogger(&settings.Main.Log, settings.Main.Log.Path, "realtime", level)
		if err != nil {
			log.Warn("file logging disabled", "path", settings.Main.Log.Path, "error", err)
		} else {
			defer func() { _ = closeLog() }()
			log = fileLog
		}
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to set up metrics: %w", err)
	}
	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(metricsAddr); err != nil {
				log.Error("metrics server stopped", "error", err)
			}
		}()
	}

	engine, err := myaudio.NewAudioEngine(settings, metrics.MyAudio)
	if err != nil {
		return fmt.Errorf("failed to build audio engine: %w", err)
	}

	if err := engine.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	dev := engine.DeviceConfig()
	log.Info("capture running",
		"node", settings.Main.Name,
		"device", dev.Name,
		"sample_rate", dev.SampleRate,
		"channels", dev.Channels)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig.String())

	engine.Stop()
	return nil
}
