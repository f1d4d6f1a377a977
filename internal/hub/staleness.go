package hub

import (
	"context"
	"time"
)

// handleStaleTick runs spec.md §4.5's stale-cleanup policy: if the airport
// has gone idle (no update in StaleTTL) while no controllers are present,
// clear objects and sharedState but keep the airport entry itself. The same
// check runs inline on every new connection (see Register in accept.go).
func (h *Hub) handleStaleTick(_ context.Context) {
	h.applyStaleCleanup()
}

func (h *Hub) applyStaleCleanup() {
	if len(h.airportState.ControllerIDs) != 0 {
		return
	}
	if time.Since(h.airportState.LastUpdateAt) <= h.opts.StaleTTL {
		return
	}
	if len(h.airportState.Objects) == 0 && len(h.sharedState) == 0 {
		return
	}
	h.airportState.Objects = make(map[string]*AirportObject)
	h.sharedState = make(SharedState)
	h.airportState.LastUpdateAt = time.Now()
	h.persistAirportState()
	h.persistSharedState()
}
