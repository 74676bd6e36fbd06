package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Format represents the log output format
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Level represents log levels
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logging configuration
type Config struct {
	Level  Level
	Format Format
	Output io.Writer // defaults to os.Stdout if nil
}

// DefaultConfig returns a default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Format: FormatConsole,
		Output: os.Stdout,
	}
}

var defaultLogger *slog.Logger

func init() {
	// Initialize with default console logger
	cfg := DefaultConfig()
	defaultLogger = New(cfg)
}

// New creates a new structured logger with the given configuration
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	level := parseLevel(cfg.Level)

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: level,
	}

	switch cfg.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	default:
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler)
}

// parseLevel converts a Level string to slog.Level
func parseLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetDefault sets the default logger for the package
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
	slog.SetDefault(logger)
}

// Default returns the default logger
func Default() *slog.Logger {
	return defaultLogger
}

// PollAttrs returns common attributes for catalog poll logging
func PollAttrs(stations, kpis int, durationMs int64, sessionID string) []slog.Attr {
	return []slog.Attr{
		slog.Int("stations", stations),
		slog.Int("kpis", kpis),
		slog.Int64("duration_ms", durationMs),
		slog.String("session_id", sessionID),
	}
}

// FetchAttrs returns common attributes for series fetch logging
func FetchAttrs(station string, tagCount, windowMinutes int, durationMs int64) []slog.Attr {
	return []slog.Attr{
		slog.String("station", station),
		slog.Int("tags", tagCount),
		slog.Int("window_minutes", windowMinutes),
		slog.Int64("duration_ms", durationMs),
	}
}

// RetryAttrs returns common attributes for retry logging
func RetryAttrs(attempt int, backoffMs int64, err error) []slog.Attr {
	attrs := []slog.Attr{
		slog.Int("attempt", attempt),
		slog.Int64("backoff_ms", backoffMs),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.String("error_type", errorType(err)),
		)
	}
	return attrs
}

// ErrorAttrs returns common attributes for error logging
func ErrorAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}
	return []slog.Attr{
		slog.String("error", err.Error()),
		slog.String("error_type", errorType(err)),
	}
}

// errorType attempts to determine the type of error
func errorType(err error) string {
	if err == nil {
		return ""
	}
	// Try to get the concrete type name
	return fmt.Sprintf("%T", err)
}

// LogPoll logs a catalog poll with standard fields
func LogPoll(logger *slog.Logger, stations, kpis int, durationMs int64, sessionID string) {
	logger.LogAttrs(context.Background(), slog.LevelInfo, "Catalog poll completed",
		PollAttrs(stations, kpis, durationMs, sessionID)...)
}

// LogPollError logs a catalog poll failure with standard fields
func LogPollError(logger *slog.Logger, sessionID string, err error) {
	attrs := []slog.Attr{
		slog.String("session_id", sessionID),
	}
	attrs = append(attrs, ErrorAttrs(err)...)
	logger.LogAttrs(context.Background(), slog.LevelError, "Catalog poll failed", attrs...)
}

// LogFetch logs a series fetch with standard fields
func LogFetch(logger *slog.Logger, station string, tagCount, windowMinutes int, durationMs int64) {
	logger.LogAttrs(context.Background(), slog.LevelInfo, "Series fetch completed",
		FetchAttrs(station, tagCount, windowMinutes, durationMs)...)
}

// LogFetchError logs a series fetch failure with standard fields
func LogFetchError(logger *slog.Logger, station string, tagCount, windowMinutes int, err error) {
	attrs := []slog.Attr{
		slog.String("station", station),
		slog.Int("tags", tagCount),
		slog.Int("window_minutes", windowMinutes),
	}
	attrs = append(attrs, ErrorAttrs(err)...)
	logger.LogAttrs(context.Background(), slog.LevelError, "Series fetch failed", attrs...)
}
