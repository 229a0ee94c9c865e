// Package conf loads and validates the application configuration from
// config.yaml via viper, with an embedded default config as fallback.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	stderrors "errors"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root configuration structure.
type Settings struct {
	Debug bool // true to enable debug mode

	Main     MainSettings
	Realtime RealtimeSettings
}

// MainSettings contains deployment identity and logging configuration.
type MainSettings struct {
	Name       string    // name of this node, used in log records
	LocationID string    // site identifier, embedded in capture filenames
	HiveID     string    // hive identifier, embedded in capture filenames
	Log        LogConfig // file logging configuration
}

// RotationType defines the log rotation strategy.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// LogConfig defines file logging and rotation.
type LogConfig struct {
	Enabled     bool
	Path        string
	Rotation    RotationType
	MaxSize     int64  // max size in bytes for RotationSize
	RotationDay string // day of the week for RotationWeekly
}

// RealtimeSettings contains all capture-time configuration.
type RealtimeSettings struct {
	Capture CaptureSettings
	Period  RecorderSettings // long archival captures, typically full rate
	Monitor RecorderSettings // short monitoring captures, typically downsampled
	Event   EventSettings
	Export  ExportSettings
}

// CaptureSettings configures the audio device and the circular buffer.
type CaptureSettings struct {
	Source        string // device name or ID, empty or "default" for system default
	SampleRate    int    // requested sample rate in Hz
	BitDepth      int    // 16, 24 or 32
	Channels      int    // requested channel count
	BufferSeconds int    // circular buffer capacity in seconds
}

// RecorderSettings configures one recurring recording task.
type RecorderSettings struct {
	Enabled    bool
	Record     float64 // capture duration in seconds
	Interval   float64 // pause between captures in seconds, 0 for back-to-back
	Format     string  // wav, flac or mp3
	SampleRate int     // target rate in Hz, 0 to keep the capture rate
	Start      string  // time-of-day window start "HH:MM", empty for always on
	End        string  // time-of-day window end "HH:MM"
}

// EventSettings configures threshold-triggered event capture.
type EventSettings struct {
	Enabled    bool
	Threshold  float64 // trigger level in dBFS, negative
	TimeBefore float64 // seconds saved before the trigger
	TimeAfter  float64 // seconds saved after the trigger
	Channel    int     // zero-based channel monitored for the trigger
	Format     string  // wav, flac or mp3
	Start      string  // time-of-day window start "HH:MM", empty for always on
	End        string  // time-of-day window end "HH:MM"
}

// ExportSettings configures where and how captures are written.
type ExportSettings struct {
	Path       string // output directory for capture files
	FfmpegPath string // path to ffmpeg binary, "ffmpeg" to use PATH
	Bitrate    string // mp3 bitrate, e.g. "192k"
	Debug      bool   // log ffmpeg command lines
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and unmarshals it into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with defaults and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first
// default config path and reads it back in.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig returns the embedded default configuration.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading embedded config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}
