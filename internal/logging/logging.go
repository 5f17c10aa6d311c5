// Package logging provides a configured slog logger with:
// - TTY detection for human-readable vs JSON output
// - LOG_FORMAT env var override (text/json)
// - LOG_LEVEL env var (debug/info/warn/error)
// - Context-based job_key/source extraction for log attribution
package logging

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// ContextKey is a type for context keys used in logging.
type ContextKey string

const (
	// JobKeyKey is the context key for a job's identity.
	JobKeyKey ContextKey = "log_job_key"
	// SourceKey is the context key for the originating adapter/source.
	SourceKey ContextKey = "log_source"
)

var currentLevel atomic.Int64

// WithJobKey adds a job_key to the context for logging.
func WithJobKey(ctx context.Context, jobKey string) context.Context {
	return context.WithValue(ctx, JobKeyKey, jobKey)
}

// WithSource adds a source tag to the context for logging.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// GetJobKey extracts job_key from context.
func GetJobKey(ctx context.Context) string {
	if v := ctx.Value(JobKeyKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetSource extracts the source tag from context.
func GetSource(ctx context.Context) string {
	if v := ctx.Value(SourceKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// FromContext returns a logger with job_key/source from context added as attributes.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if ctx == nil {
		return logger
	}
	if jobKey := GetJobKey(ctx); jobKey != "" {
		logger = logger.With("job_key", jobKey)
	}
	if source := GetSource(ctx); source != "" {
		logger = logger.With("source", source)
	}
	return logger
}

// New creates a new configured logger.
// Format is determined by:
//  1. LOG_FORMAT env var (text/json)
//  2. TTY detection (text for TTY, JSON otherwise)
//
// Level is determined by LOG_LEVEL env var (debug/info/warn/error, default: info).
func New() *slog.Logger {
	logFormat := os.Getenv("LOG_FORMAT")
	format := "json"
	if logFormat == "text" || (logFormat == "" && isatty(os.Stdout)) {
		format = "text"
	}

	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	currentLevel.Store(int64(level))

	lv := &slog.LevelVar{}
	lv.Set(level)

	opts := &slog.HandlerOptions{
		Level:     lv,
		AddSource: true,
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// SetDefault creates a new logger and sets it as the default slog logger.
// Returns the created logger for additional use.
func SetDefault() *slog.Logger {
	logger := New()
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the global log level at runtime.
func SetLevel(level slog.Level) {
	currentLevel.Store(int64(level))
}

// GetLevel returns the current global log level.
func GetLevel() slog.Level {
	return slog.Level(currentLevel.Load())
}

// isatty returns true if the file is a terminal.
func isatty(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
