package hub

import (
	"context"
	"time"

	"github.com/stopbars/core/internal/catalogue"
	"github.com/stopbars/core/internal/identity"
)

// objectView is the wire shape of one AirportObject (spec.md §6.1/§6.3).
type objectView struct {
	ID               string `json:"id"`
	State            any    `json:"state"`
	LastControllerID string `json:"controllerId,omitempty"`
	UpdatedAt        int64  `json:"updatedAt"`
}

// snapshotObjects builds the object list for INITIAL_STATE, STATE_SNAPSHOT,
// and the Registry's get_state_snapshot. When offline is true it synthesizes
// the Point Catalogue baseline (spec.md §4.5); otherwise it reflects the
// live airportState.
func (h *Hub) snapshotObjects(ctx context.Context, offline bool) ([]objectView, error) {
	if !offline {
		out := make([]objectView, 0, len(h.airportState.Objects))
		for _, o := range h.airportState.Objects {
			out = append(out, objectView{
				ID:               o.ID,
				State:            o.State,
				LastControllerID: o.LastControllerID,
				UpdatedAt:        o.UpdatedAt.UnixMilli(),
			})
		}
		return out, nil
	}

	if h.catalogue == nil {
		return []objectView{}, nil
	}
	points, err := h.catalogue.Points(ctx, h.airport)
	if err != nil {
		return nil, err
	}
	now := time.Now().UnixMilli()
	out := make([]objectView, 0, len(points))
	for _, pt := range points {
		out = append(out, objectView{ID: pt.ID, State: catalogue.DefaultBaseline(pt.Kind), UpdatedAt: now})
	}
	return out, nil
}

type snapshotRequest struct {
	offlineForced bool
}

type snapshotResult struct {
	Airport     string       `json:"airport"`
	Controllers []string     `json:"controllers"`
	Pilots      []string     `json:"pilots"`
	Objects     []objectView `json:"objects"`
	Offline     bool         `json:"offline"`
}

type snapshotOp struct {
	req  snapshotRequest
	resp chan *snapshotResult
}

// Snapshot answers the Hub Registry's get_state_snapshot and the façade's
// local /state query (spec.md §4.1, §6.2) without opening a socket.
func (h *Hub) Snapshot(ctx context.Context, offlineForced bool) (*snapshotResult, error) {
	op := &snapshotOp{req: snapshotRequest{offlineForced: offlineForced}, resp: make(chan *snapshotResult, 1)}
	select {
	case h.snapshotCh <- op:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case res := <-op.resp:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) handleSnapshot(ctx context.Context, op *snapshotOp) {
	offline := op.req.offlineForced || h.isOffline()
	objects, err := h.snapshotObjects(ctx, offline)
	if err != nil {
		h.log.Warn().Err(err).Msg("snapshot: failed to read catalogue, returning empty objects")
		objects = []objectView{}
	}

	var controllers, pilots []string
	for _, s := range h.sockets {
		switch s.Kind {
		case identity.KindController:
			controllers = append(controllers, s.UserID)
		case identity.KindPilot:
			pilots = append(pilots, s.UserID)
		}
	}

	op.resp <- &snapshotResult{
		Airport:     h.airport,
		Controllers: controllers,
		Pilots:      pilots,
		Objects:     objects,
		Offline:     offline,
	}
}
