// Package log provides structured logging for camwatch.
// It wraps slog with sensible defaults for production use.
package log

import (
	"log/slog"
	"os"
	"sync"
)

var (
	logger *slog.Logger
	level  slog.LevelVar
	once   sync.Once
)

// Init initializes the global logger.
// Valid levels: "debug", "info", "warn", "error". When json is true the
// logger emits JSON records, otherwise human-readable text.
func Init(lvl string, json bool) {
	once.Do(func() {
		level.Set(parseLevel(lvl))

		opts := &slog.HandlerOptions{
			Level: &level,
		}

		if json {
			logger = slog.New(slog.NewJSONHandler(os.Stdout, opts))
		} else {
			logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
		}

		slog.SetDefault(logger)
	})
}

// SetLevel adjusts the log level at runtime.
func SetLevel(lvl string) {
	level.Set(parseLevel(lvl))
}

func parseLevel(lvl string) slog.Level {
	switch lvl {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("info", os.Getenv("GO_ENV") == "production")
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
