// Package logging holds the process-wide structured logger. Diagnostics go
// to stderr so command output on stdout stays clean for scripting.
package logging

import (
	"log/slog"
	"os"
)

var level slog.LevelVar

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: &level,
}))

func init() {
	level.Set(slog.LevelInfo)
	slog.SetDefault(logger)
}

// SetVerbose switches between info and debug level output.
func SetVerbose(verbose bool) {
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// Logger returns the shared logger instance.
func Logger() *slog.Logger {
	return logger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Info logs an info message.
func Info(msg string, args ...any) {
	logger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	logger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}
