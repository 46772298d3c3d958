// Package telemetry provides application-level observability for the link
// manager: structured logging setup and Prometheus metrics covering the
// resolution fallback chain, audit emission, and the HTTP surface.
package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// SetupLogger configures the global slog default logger from the format and
// level strings read from application configuration.
//
// format: "json" → JSONHandler (machine readable; recommended for production)
//
//	anything else → TextHandler (human readable; local development)
//
// level: "debug", "info", "warn", "error" (case-insensitive); defaults to "info".
//
// The configured logger is installed as the default so slog.Info/Warn/Error
// calls elsewhere in the application automatically use it without needing to
// carry a *slog.Logger in context.
func SetupLogger(format, level string) {
	lvl := ParseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug, // include file:line only when debugging
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}

// ParseLevel maps a configuration string to a slog.Level, defaulting to info.
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
