// ABOUTME: Structured logging for docqa built on charmbracelet/log
// ABOUTME: Package-level helpers with key/value pairs; verbose mode enables debug output
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.RWMutex
	verbose bool
	quiet   bool
	jsonFmt bool
	std     = newLogger(os.Stderr)
)

// newLogger builds a logger for w using the current level and formatter; callers hold mu
func newLogger(w io.Writer) *log.Logger {
	formatter := log.TextFormatter
	if jsonFmt {
		formatter = log.JSONFormatter
	}
	return log.NewWithOptions(w, log.Options{
		Level:     level(),
		Prefix:    "docqa",
		Formatter: formatter,
	})
}

func level() log.Level {
	switch {
	case verbose:
		return log.DebugLevel
	case quiet:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	std.SetLevel(level())
}

// SetQuiet limits output to errors.
func SetQuiet(q bool) {
	mu.Lock()
	defer mu.Unlock()
	quiet = q
	std.SetLevel(level())
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std = newLogger(w)
}

// SetJSON switches to JSON-formatted log lines. The choice survives SetOutput.
func SetJSON(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	jsonFmt = enabled
	if enabled {
		std.SetFormatter(log.JSONFormatter)
	} else {
		std.SetFormatter(log.TextFormatter)
	}
}

func current() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// Debug logs a message with key/value pairs at debug level.
func Debug(msg string, keyvals ...any) {
	current().Debug(msg, keyvals...)
}

// Info logs a message with key/value pairs at info level.
func Info(msg string, keyvals ...any) {
	current().Info(msg, keyvals...)
}

// Warn logs a message with key/value pairs at warn level.
func Warn(msg string, keyvals ...any) {
	current().Warn(msg, keyvals...)
}

// Error logs a message with key/value pairs at error level.
func Error(msg string, keyvals ...any) {
	current().Error(msg, keyvals...)
}
