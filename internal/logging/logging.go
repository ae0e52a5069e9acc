// Package logging configures the diagnostic logger.
//
// All output goes to stderr: stdout belongs to the protocol channel and
// a single stray log line there would corrupt a JSON-RPC response.
package logging

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var (
	defaultLogger *log.Logger
	once          sync.Once
)

// Default returns the process-wide diagnostic logger, creating it on
// first use.
func Default() *log.Logger {
	once.Do(func() {
		defaultLogger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.Kitchen,
			Prefix:          "skillserv",
		})
		if os.Getenv("SKILLSERV_DEBUG") != "" {
			defaultLogger.SetLevel(log.DebugLevel)
		}
	})
	return defaultLogger
}

// SetLevel adjusts the default logger's level from a config string
// ("debug", "info", "warn", "error"). Unknown values keep the current
// level.
func SetLevel(level string) {
	switch level {
	case "debug":
		Default().SetLevel(log.DebugLevel)
	case "info":
		Default().SetLevel(log.InfoLevel)
	case "warn":
		Default().SetLevel(log.WarnLevel)
	case "error":
		Default().SetLevel(log.ErrorLevel)
	}
}

// Package-level convenience functions for quick logging.

func Debug(msg string, keyvals ...interface{}) {
	Default().Debug(msg, keyvals...)
}

func Info(msg string, keyvals ...interface{}) {
	Default().Info(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	Default().Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	Default().Error(msg, keyvals...)
}
