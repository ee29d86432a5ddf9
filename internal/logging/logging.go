// Package logging provides slog-based logging for the Okta MCP server.
//
// All output goes to stderr: on the stdio transport stdout carries the
// JSON-RPC wire and must never receive log lines.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Custom logging levels (compatible with slog)
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug // -4
	LevelInfo  = slog.LevelInfo  // 0
	LevelWarn  = slog.LevelWarn  // 4
	LevelError = slog.LevelError // 8
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// ParseLevel converts a textual level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO", "":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarn, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// LoggerFactory creates component-scoped loggers sharing one handler.
type LoggerFactory struct {
	writer  io.Writer
	level   *slog.LevelVar
	handler slog.Handler
}

// NewLoggerFactory creates a factory writing text logs to stderr at INFO.
func NewLoggerFactory() *LoggerFactory {
	return NewLoggerFactoryWithConfig(os.Stderr, LevelInfo)
}

// NewLoggerFactoryWithConfig creates a factory with a custom writer and level.
func NewLoggerFactoryWithConfig(w io.Writer, level slog.Level) *LoggerFactory {
	if w == nil {
		w = os.Stderr
	}
	lv := &slog.LevelVar{}
	lv.Set(level)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       lv,
		ReplaceAttr: customizeLogLevels,
	})
	return &LoggerFactory{writer: w, level: lv, handler: handler}
}

// SetLevel sets the logging level for all loggers created by this factory.
func (f *LoggerFactory) SetLevel(level slog.Level) {
	f.level.Set(level)
}

// CreateLogger creates a new logger tagged with a component name.
func (f *LoggerFactory) CreateLogger(name string) *slog.Logger {
	return slog.New(f.handler).With("component", name)
}

// customizeLogLevels renders the custom TRACE/FATAL levels by name.
func customizeLogLevels(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if name, ok := levelNames[level]; ok {
			return slog.Attr{Key: a.Key, Value: slog.StringValue(name)}
		}
	}
	return a
}

// Trace logs at trace level
func Trace(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Log(context.TODO(), LevelTrace, msg, args...)
}

// Debug logs at debug level
func Debug(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Debug(msg, args...)
}

// Info logs at info level
func Info(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Info(msg, args...)
}

// Warn logs at warn level
func Warn(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Warn(msg, args...)
}

// Error logs at error level
func Error(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Error(msg, args...)
}

// Fatal logs at fatal level and exits
func Fatal(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Log(context.TODO(), LevelFatal, msg, args...)
	}
	os.Exit(1)
}
