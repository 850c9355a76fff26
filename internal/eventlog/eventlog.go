// Package eventlog is the port through which editing operations report
// lifecycle events to whatever owns log persistence.
package eventlog

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// Level is the severity of an event.
type Level string

// Severity levels.
const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event types emitted by the editor.
const (
	OperationStart        = "operation.start"
	OperationSuccess      = "operation.success"
	OperationFailure      = "operation.failure"
	ArtifactCleanupFailed = "artifact.cleanup_failed"
	NormalizeFallback     = "audio.normalize_fallback"
)

// Logger receives structured lifecycle events.
type Logger interface {
	Log(level Level, eventType, message string, data map[string]any)
}

// SlogLogger forwards events to a slog.Logger. The event type is attached as
// the "event" attribute and data keys are emitted in sorted order.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a SlogLogger. A nil logger uses slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

// Log implements Logger.
func (l *SlogLogger) Log(level Level, eventType, message string, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	attrs := make([]slog.Attr, 0, len(keys)+1)
	attrs = append(attrs, slog.String("event", eventType))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, data[k]))
	}
	l.logger.LogAttrs(context.Background(), level.slog(), message, attrs...)
}

func (l Level) slog() slog.Level {
	switch Level(strings.ToLower(string(l))) {
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

// Nop discards every event.
type Nop struct{}

// Log implements Logger.
func (Nop) Log(Level, string, string, map[string]any) {}

var (
	_ Logger = (*SlogLogger)(nil)
	_ Logger = Nop{}
)
