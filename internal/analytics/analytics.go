// Package analytics defines the Analytics Sink port (spec.md §2.8):
// fire-and-forget event emission that must never block a Hub's hot path.
package analytics

import "time"

// Event is one fire-and-forget analytics record.
type Event struct {
	Name    string
	Airport string
	Fields  map[string]any
	At      time.Time
}

// Sink accepts analytics events without blocking the caller.
type Sink interface {
	Emit(e Event)
}

// NoopSink discards every event. Used when no analytics backend is
// configured.
type NoopSink struct{}

func (NoopSink) Emit(Event) {}
