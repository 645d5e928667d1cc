package history

import (
	"context"
	"time"
)

// EventType is the kind of lifecycle event recorded for a service.
type EventType string

const (
	EventLaunched     EventType = "launched"
	EventLaunchFailed EventType = "launch-failed"
	EventHealthy      EventType = "healthy"
	EventUnhealthy    EventType = "unhealthy"
	EventExited       EventType = "exited"
	EventStopped      EventType = "stopped"
)

// Event is one lifecycle record appended to a sink.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Service    string    `json:"service"`
	PID        int       `json:"pid"`
	Detail     string    `json:"detail,omitempty"` // exit code, shutdown outcome, probe result
}

// Sink is an append-only destination for lifecycle events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Nop discards all events. Used when no history DSN is configured.
type Nop struct{}

func (Nop) Send(context.Context, Event) error { return nil }
func (Nop) Close() error                      { return nil }
