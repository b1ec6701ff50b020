// Package logging builds the node's structured logger.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"zigsense-go/services/config"
)

// New creates a logger for cfg: text or JSON records, level filtering and
// the default fields service and version. Components derive their own
// logger with With("component", name).
func New(cfg config.LoggingConfig, version string) *slog.Logger {
	return NewWithWriter(Console(cfg), cfg, version)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	h = h.WithAttrs([]slog.Attr{
		slog.String("service", "zigsense"),
		slog.String("version", version),
	})
	return slog.New(h)
}

// ParseLevel converts a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
