// Package log provides the leveled logger used across the server.
//
// Messages are printf-style and written through log/slog's text handler, so
// every line carries a timestamp and a level. Debug output is off until
// SetVerbose(true) is called.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	level   = new(slog.LevelVar)
	verbose atomic.Bool
	logger  atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelInfo)
	SetOutput(os.Stderr)
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	logger.Store(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetVerbose sets the logging verbosity. If true, debug messages are displayed.
func SetVerbose(v bool) {
	verbose.Store(v)
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if verbose logging is enabled.
func IsVerbose() bool {
	return verbose.Load()
}

// Debugf logs a debug message if verbose is true.
func Debugf(format string, args ...any) {
	logMessage(slog.LevelDebug, format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...any) {
	logMessage(slog.LevelInfo, format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...any) {
	logMessage(slog.LevelWarn, format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...any) {
	logMessage(slog.LevelError, format, args...)
}

// Fatalf logs an error message and exits the program.
func Fatalf(format string, args ...any) {
	logMessage(slog.LevelError, format, args...)
	os.Exit(1)
}

// With returns a structured logger carrying the given attributes, for call
// sites that want key/value output instead of a formatted line.
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}

func logMessage(lvl slog.Level, format string, args ...any) {
	l := logger.Load()
	if !l.Enabled(context.Background(), lvl) {
		return
	}
	l.Log(context.Background(), lvl, fmt.Sprintf(format, args...))
}
