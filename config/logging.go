package config

import (
	"io"
	"log/slog"
	"os"
)

// ParseLevel parses a level name into a slog level. Unknown names fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "info", "INFO", "":
		return slog.LevelInfo
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a structured logger from the logging section. Output
// goes to standard error.
func NewLogger(c LoggingConfig) *slog.Logger {
	return NewLoggerTo(os.Stderr, c)
}

// NewLoggerTo builds a structured logger writing to w.
func NewLoggerTo(w io.Writer, c LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     ParseLevel(c.Level),
		AddSource: c.AddSource,
	}

	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
