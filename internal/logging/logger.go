// Package logging provides centralized logging functionality for the application.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug for detailed troubleshooting information.
	LevelDebug LogLevel = "debug"
	// LevelInfo for general operational information.
	LevelInfo LogLevel = "info"
	// LevelWarn for potentially harmful situations.
	LevelWarn LogLevel = "warn"
	// LevelError for error events that might still allow the application to continue.
	LevelError LogLevel = "error"
)

// Format selects the handler used to render log records.
type Format string

const (
	// FormatText renders key=value pairs, the default for the CLI.
	FormatText Format = "text"
	// FormatJSON renders one JSON object per line, meant for the server.
	FormatJSON Format = "json"
)

var (
	// defaultLogger is the default logger instance.
	defaultLogger *slog.Logger
)

// init initializes the default logger.
func init() {
	// Get log level from environment variable, default to "info"
	logLevelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = string(LevelInfo)
	}

	SetupLogger(os.Stderr, LogLevel(logLevelStr), Format(strings.ToLower(os.Getenv("LOG_FORMAT"))))
}

// ParseLevel maps a LogLevel to its slog equivalent. Unknown levels map to info.
func ParseLevel(level LogLevel) slog.Level {
	switch LogLevel(strings.ToLower(string(level))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger configures the logger with the specified output, level and format.
func SetupLogger(w io.Writer, level LogLevel, format Format) {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// Debug logs a message at debug level.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs a message at info level.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a message at warn level.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs a message at error level.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// With returns a logger that adds args to every record, e.g. a request id.
func With(args ...any) *slog.Logger {
	return defaultLogger.With(args...)
}

// GetLogger returns the default logger.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// MaskSensitive masks sensitive data for logging.
func MaskSensitive(value string) string {
	if value == "" {
		return "<not set>"
	}
	if len(value) <= 4 {
		return "<set>"
	}
	return value[:4] + "..." + strings.Repeat("*", 3)
}
