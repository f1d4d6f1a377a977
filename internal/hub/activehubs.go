package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/stopbars/core/internal/store"
)

// activeHubLabel renders spec.md §3's "<icao>/<ctlCount>/<pilotCount>/<obsCount>".
func activeHubLabel(airport string, rc RoleCounts) string {
	return fmt.Sprintf("%s/%d/%d/%d", airport, rc.Controllers, rc.Pilots, rc.Observers)
}

// scheduleActiveHubUpdate upserts or deletes this Hub's ActiveHubEntry row,
// throttled to at most once per ACTIVE_HUB_THROTTLE (spec.md §4.7). Deletes
// on last disconnect are never throttled, since an entry lingering past its
// socket count reaching zero would misreport the Hub as still live.
func (h *Hub) scheduleActiveHubUpdate(ctx context.Context) {
	if h.store == nil {
		return
	}
	if len(h.sockets) == 0 {
		h.lastActiveHubUpdate = time.Time{}
		go func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.store.DeleteActiveHub(dctx, h.hubID); err != nil {
				h.log.Warn().Err(err).Msg("failed to delete active hub entry")
			}
		}()
		return
	}

	now := time.Now()
	if !h.lastActiveHubUpdate.IsZero() && now.Sub(h.lastActiveHubUpdate) < h.opts.ActiveHubThrottle {
		return
	}
	h.lastActiveHubUpdate = now

	entry := store.ActiveHubEntry{HubID: h.hubID, Label: activeHubLabel(h.airport, h.roleCounts()), LastUpdatedAt: now}
	go func() {
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.store.UpsertActiveHub(uctx, entry); err != nil {
			h.log.Warn().Err(err).Msg("failed to upsert active hub entry")
		}
	}()
}
