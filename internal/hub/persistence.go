package hub

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stopbars/core/internal/store"
)

type persistJob struct {
	key   string
	value []byte
}

// persistLoop decouples Durable State Store writes from the owner loop, the
// same way the teacher's broadcastLoop decouples browser fan-out from
// handleAgentMessage. Writes are best-effort (spec.md §4.7): a failure is
// logged and otherwise ignored, relying on the next update to converge.
func (h *Hub) persistLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-h.persistCh:
			if h.store == nil {
				continue
			}
			if err := h.store.Set(ctx, job.key, job.value); err != nil {
				h.log.Warn().Err(err).Str("key", job.key).Msg("persistence write failed")
			}
		}
	}
}

// schedulePersist enqueues a best-effort write, skipping (with a warning)
// payloads over MAX_STATE_SIZE per spec.md §4.7, and dropping silently if
// the persistence queue is saturated — persistence is eventually consistent
// by design, never a blocking guarantee.
func (h *Hub) schedulePersist(key string, value []byte) {
	if h.opts.MaxStateSize > 0 && len(value) > h.opts.MaxStateSize {
		h.log.Warn().Str("key", key).Int("size", len(value)).Msg("skipping persistence write, exceeds MAX_STATE_SIZE")
		return
	}
	select {
	case h.persistCh <- persistJob{key: key, value: value}:
	default:
		h.log.Warn().Str("key", key).Msg("persistence queue full, dropping write")
	}
}

// wireAirportState is the spec.md §4.7/§6.3 serialized shape of airport_state:<icao>.
type wireAirportState struct {
	Airport      string                 `json:"airport"`
	Objects      map[string]objectView  `json:"objects"`
	LastUpdateAt int64                  `json:"lastUpdate"`
	Controllers  []string               `json:"controllers"`
}

func (h *Hub) persistAirportState() {
	objects := make(map[string]objectView, len(h.airportState.Objects))
	for id, o := range h.airportState.Objects {
		objects[id] = objectView{ID: o.ID, State: o.State, LastControllerID: o.LastControllerID, UpdatedAt: o.UpdatedAt.UnixMilli()}
	}
	controllers := make([]string, 0, len(h.airportState.ControllerIDs))
	for id := range h.airportState.ControllerIDs {
		controllers = append(controllers, id)
	}
	wire := wireAirportState{
		Airport:      h.airport,
		Objects:      objects,
		LastUpdateAt: h.airportState.LastUpdateAt.UnixMilli(),
		Controllers:  controllers,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal airport state")
		return
	}
	h.schedulePersist(store.AirportStateKey(h.airport), data)
}

func (h *Hub) persistSharedState() {
	data, err := json.Marshal(h.sharedState)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal shared state")
		return
	}
	h.schedulePersist(store.AirportSharedStateKey(h.airport), data)
}

// LoadAirportState reads and decodes the persisted airport_state blob for
// airport, tolerating a missing or malformed blob by returning a fresh
// empty state (spec.md §4.7). Called once by the Registry at Hub creation.
func LoadAirportState(ctx context.Context, st store.Store, airport string) *AirportState {
	s := newAirportState(airport)
	if st == nil {
		return s
	}
	raw, ok, err := st.Get(ctx, store.AirportStateKey(airport))
	if err != nil || !ok {
		return s
	}
	var wire wireAirportState
	if err := json.Unmarshal(raw, &wire); err != nil {
		return s
	}
	for id, ov := range wire.Objects {
		s.Objects[id] = &AirportObject{
			ID:               id,
			State:            ov.State,
			LastControllerID: ov.LastControllerID,
			UpdatedAt:        time.UnixMilli(ov.UpdatedAt),
		}
	}
	// Controllers is intentionally not restored here: ControllerIDs tracks
	// live sockets, and a userID with no live socket backing it can never
	// be removed (disconnect is the only place that deletes an entry).
	// Reconnecting controllers re-populate it themselves via Register.
	if wire.LastUpdateAt > 0 {
		s.LastUpdateAt = time.UnixMilli(wire.LastUpdateAt)
	}
	return s
}

// LoadSharedState reads and decodes the persisted airport_shared_state blob,
// tolerating a missing or malformed blob by returning an empty object.
func LoadSharedState(ctx context.Context, st store.Store, airport string) SharedState {
	s := make(SharedState)
	if st == nil {
		return s
	}
	raw, ok, err := st.Get(ctx, store.AirportSharedStateKey(airport))
	if err != nil || !ok {
		return s
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return make(SharedState)
	}
	return s
}
