// Package observability carries events out of a silo: node construction,
// modifier attachment, task application and subscriber notification. Level
// values align with OpenTelemetry SeverityNumbers so events can be handed to
// an OTel collector without translation.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level represents event severity aligned with OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8), maps to slog.LevelDebug
	LevelInfo    Level = 9  // OTel INFO (9-12), maps to slog.LevelInfo
	LevelWarning Level = 13 // OTel WARN (13-16), maps to slog.LevelWarn
	LevelError   Level = 17 // OTel ERROR (17-20), maps to slog.LevelError
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps this level to the slog.Level used when the event is logged.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names the kind of event ("silo.task.apply", "silo.notify", ...).
type EventType string

// Event is emitted by a silo whenever something observable happens to a node.
// Node is the full node name ("root_list_1") and is empty for silo-wide
// events. Data holds event-specific attributes.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Node      string
	Data      map[string]any
}

// Observer receives silo events for logging, tracing, or metrics.
// Implementations are called synchronously from node runners and must not
// block.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}
