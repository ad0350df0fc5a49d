package contract

import (
	"io"
	"log/slog"
)

// NewLogger builds a text logger on w at the given level.
// Diagnostics go to stderr so stdout stays clean for JSON output.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// DiscardLogger returns a logger that drops everything, for tests and library callers.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupLogging installs the process-wide default logger.
func SetupLogging(w io.Writer, level slog.Level) *slog.Logger {
	logger := NewLogger(w, level)
	slog.SetDefault(logger)
	return logger
}
