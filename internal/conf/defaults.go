package conf

import (
	"github.com/spf13/viper"
)

// setDefaultConfig sets viper defaults for every configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Main
	viper.SetDefault("main.name", "BmarGo")
	viper.SetDefault("main.locationid", "site0")
	viper.SetDefault("main.hiveid", "hive0")
	viper.SetDefault("main.log.enabled", true)
	viper.SetDefault("main.log.path", "logs/bmar.log")
	viper.SetDefault("main.log.rotation", RotationDaily)
	viper.SetDefault("main.log.maxsize", 1048576)
	viper.SetDefault("main.log.rotationday", "Sunday")

	// Capture device and circular buffer
	viper.SetDefault("realtime.capture.source", "default")
	viper.SetDefault("realtime.capture.samplerate", 192000)
	viper.SetDefault("realtime.capture.bitdepth", 16)
	viper.SetDefault("realtime.capture.channels", 2)
	viper.SetDefault("realtime.capture.bufferseconds", 900)

	// Period task: long full-rate archival captures
	viper.SetDefault("realtime.period.enabled", true)
	viper.SetDefault("realtime.period.record", 300.0)
	viper.SetDefault("realtime.period.interval", 10.0)
	viper.SetDefault("realtime.period.format", "flac")
	viper.SetDefault("realtime.period.samplerate", 0)
	viper.SetDefault("realtime.period.start", "")
	viper.SetDefault("realtime.period.end", "")

	// Monitor task: short downsampled captures
	viper.SetDefault("realtime.monitor.enabled", true)
	viper.SetDefault("realtime.monitor.record", 60.0)
	viper.SetDefault("realtime.monitor.interval", 10.0)
	viper.SetDefault("realtime.monitor.format", "mp3")
	viper.SetDefault("realtime.monitor.samplerate", 48000)
	viper.SetDefault("realtime.monitor.start", "")
	viper.SetDefault("realtime.monitor.end", "")

	// Event capture
	viper.SetDefault("realtime.event.enabled", false)
	viper.SetDefault("realtime.event.threshold", -12.0)
	viper.SetDefault("realtime.event.timebefore", 30.0)
	viper.SetDefault("realtime.event.timeafter", 30.0)
	viper.SetDefault("realtime.event.channel", 0)
	viper.SetDefault("realtime.event.format", "flac")
	viper.SetDefault("realtime.event.start", "")
	viper.SetDefault("realtime.event.end", "")

	// Export
	viper.SetDefault("realtime.export.path", "recordings/")
	viper.SetDefault("realtime.export.ffmpegpath", "ffmpeg")
	viper.SetDefault("realtime.export.bitrate", "192k")
	viper.SetDefault("realtime.export.debug", false)
}
