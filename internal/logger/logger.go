// Package logger wraps log/slog behind a process-wide default so call
// sites can log key-value pairs without threading a logger through every
// constructor.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

var base *slog.Logger

// Initialize builds the process logger from config values. Unknown levels
// fall back to info; any format other than "json" means text.
func Initialize(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	base = slog.New(handler)
	slog.SetDefault(base)
}

func parseLevel(level string) slog.Level {
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

func get() *slog.Logger {
	if base == nil {
		Initialize("info", "text")
	}
	return base
}

// With returns a logger carrying the given attributes on every record.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

func Debug(msg string, args ...any) { get().Debug(msg, args...) }
func Info(msg string, args ...any)  { get().Info(msg, args...) }
func Warn(msg string, args ...any)  { get().Warn(msg, args...) }
func Error(msg string, args ...any) { get().Error(msg, args...) }
