// Package logging provides structured logging for sensor-node.
//
// It wraps log/slog with the node's configuration: JSON or text output,
// stdout or stderr, and a level that can be changed at runtime (the log level
// select entity writes to it).
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sweeney/sensor-node/internal/config"
)

// Levels lists the level names accepted by ParseLevel, most verbose first.
var Levels = []string{"debug", "info", "warn", "error"}

// Logger wraps slog.Logger with a shared, adjustable level.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New creates a Logger from configuration. The service and version fields are
// attached to every record.
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		output = os.Stdout
	default:
		output = os.Stderr
	}
	return newLogger(output, cfg.Format, cfg.Level, version)
}

// NewWriter creates a Logger writing to w. Used by tests.
func NewWriter(w io.Writer, format, level string) *Logger {
	return newLogger(w, format, level, "test")
}

func newLogger(w io.Writer, format, level, version string) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(ParseLevel(level))

	opts := &slog.HandlerOptions{Level: lv}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", "sensor-node"),
		slog.String("version", version),
	})

	return &Logger{Logger: slog.New(handler), level: lv}
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
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

// LevelName returns the lower-case name for a level from Levels.
func LevelName(l slog.Level) string {
	switch {
	case l <= slog.LevelDebug:
		return "debug"
	case l <= slog.LevelInfo:
		return "info"
	case l <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// SetLevel changes the level for this logger and every logger derived from it.
func (l *Logger) SetLevel(level string) {
	l.level.Set(ParseLevel(level))
}

// Level returns the current level name.
func (l *Logger) Level() string {
	return LevelName(l.level.Level())
}

// With returns a Logger with additional attributes sharing the same level.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// Component returns a Logger tagged with component=name.
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Discard returns a Logger that drops everything. Used by tests.
func Discard() *Logger {
	return NewWriter(io.Discard, "text", "error")
}
