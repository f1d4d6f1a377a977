package analytics

import (
	"context"

	"github.com/rs/zerolog"
)

// Exporter ships a batch of one event to wherever analytics actually goes
// (an external sink is explicitly out of scope per spec.md §1 — this is the
// seam a real backend would plug into).
type Exporter func(Event)

// ChannelSink is the reference Sink: a bounded channel drained by a single
// background goroutine, grounded on the teacher's Hub.broadcasts /
// queueBroadcast design in internal/dashboard/hub.go. It differs from the
// teacher in one deliberate way: spec.md's Analytics Sink calls for a
// drop-OLDEST policy on overflow (recent events are more useful for
// debugging), whereas the teacher's broadcast queue drops the newest
// message when full.
type ChannelSink struct {
	events chan Event
	export Exporter
	log    zerolog.Logger
}

// NewChannelSink starts a ChannelSink with the given buffer size and
// exporter, running until ctx is canceled.
func NewChannelSink(ctx context.Context, bufferSize int, export Exporter, log zerolog.Logger) *ChannelSink {
	s := &ChannelSink{
		events: make(chan Event, bufferSize),
		export: export,
		log:    log.With().Str("component", "analytics").Logger(),
	}
	go s.run(ctx)
	return s
}

// Emit never blocks: if the buffer is full, the oldest queued event is
// dropped to make room for this one.
func (s *ChannelSink) Emit(e Event) {
	select {
	case s.events <- e:
		return
	default:
	}

	// Buffer full: drop the oldest, then retry once. If a consumer drained
	// a slot between the two selects, the retry still succeeds immediately.
	select {
	case <-s.events:
		s.log.Warn().Msg("analytics buffer full, dropped oldest event")
	default:
	}
	select {
	case s.events <- e:
	default:
		// Buffer refilled by a concurrent Emit between our drain and send;
		// this event is dropped rather than looping, to guarantee Emit
		// never blocks the hot path.
		s.log.Warn().Msg("analytics buffer full, dropped event")
	}
}

func (s *ChannelSink) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.events:
			s.export(e)
		}
	}
}
