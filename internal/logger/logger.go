// Package logger provides the shared application logger.
package logger

import (
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Log is the global logger. Components derive prefixed sub-loggers
// from it via WithPrefix.
var Log = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
})

// Init sets the global log level from a string ("debug", "info",
// "warn", "error"). Unknown values fall back to info.
func Init(level string) {
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	default:
		Log.SetLevel(log.InfoLevel)
	}
}

// WithPrefix returns a sub-logger tagged with a component name.
func WithPrefix(prefix string) *log.Logger {
	return Log.WithPrefix(prefix)
}
