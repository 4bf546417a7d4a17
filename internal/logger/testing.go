package logger

import (
	"log/slog"
	"os"
)

// NewTestLogger creates a logger for tests. It stays at WARN so passing
// runs print nothing, and drops to DEBUG when the TEST_DEBUG environment
// variable is set.
func NewTestLogger() *slog.Logger {
	cfg := Config{
		Level:  slog.LevelWarn,
		Format: "text",
	}
	if os.Getenv("TEST_DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	return NewLoggerTo(os.Stdout, cfg)
}
