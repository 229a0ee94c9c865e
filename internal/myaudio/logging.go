package myaudio

import (
	"log/slog"
	"sync"

	"github.com/beehub/bmar-go/internal/logging"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

// getLogger returns the package logger, falling back to the slog default
// when the logging system has not been initialized (tests).
func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService(component)
		if serviceLogger == nil {
			serviceLogger = slog.Default().With("service", component)
		}
	})
	return serviceLogger
}
