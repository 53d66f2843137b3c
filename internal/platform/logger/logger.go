package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/taskqueue/internal/config"
)

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured logger on stdout with
// the appropriate log level and format and sets it as the default logger for
// the application.
func Setup(cfg config.LoggingConfig) (*slog.Logger, error) {
	logger := New(os.Stdout, cfg)

	// This allows using the slog package functions directly (slog.Info, slog.Error, etc.)
	slog.SetDefault(logger)

	return logger, nil
}

// New builds a logger writing to w without touching the default logger.
func New(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a level name (case-insensitive) to a slog.Level.
// Unknown names fall back to info with a warning on stderr.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Create a temporary logger to output the warning
	tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	tmpLogger.Warn("invalid log level configured, using default level",
		"configured_level", name,
		"default_level", "info")
	return slog.LevelInfo
}
