// Package logger provides structured logging configuration using log/slog.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
}

// DefaultConfig returns the default logger configuration: INFO level, text
// output. The AURORA_LOG_LEVEL environment variable (DEBUG, INFO, WARN,
// WARNING or ERROR) and AURORA_LOG_FORMAT (text or json) override it.
func DefaultConfig() Config {
	cfg := Config{
		Level:  slog.LevelInfo,
		Format: "text",
	}

	if level, ok := parseLevel(os.Getenv("AURORA_LOG_LEVEL")); ok {
		cfg.Level = level
	}
	if strings.EqualFold(os.Getenv("AURORA_LOG_FORMAT"), "json") {
		cfg.Format = "json"
	}

	return cfg
}

// NewLogger creates a configured slog.Logger writing to stderr.
func NewLogger(cfg Config) *slog.Logger {
	return NewLoggerTo(os.Stderr, cfg)
}

// NewLoggerTo creates a configured slog.Logger writing to w.
func NewLoggerTo(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.Level,
		// Source locations are only worth the line noise when debugging
		AddSource: cfg.Level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return 0, false
	}
}
