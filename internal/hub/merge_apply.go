package hub

import (
	"time"

	"github.com/stopbars/core/internal/protocol"
)

// applyStateUpdate runs spec.md §4.3.1: resolve the union payload against
// the current object (defaulting to an empty object state), merge or
// replace, then stamp bookkeeping fields. Returns the new state to echo on
// the broadcast.
func (h *Hub) applyStateUpdate(objectID, senderUserID string, data protocol.StateUpdateData) (any, error) {
	limits := h.mergeLimits()
	patch, resolved, err := data.Resolve(limits)
	if err != nil {
		if h.metrics != nil {
			h.metrics.MergeRejections.Inc()
		}
		return nil, err
	}

	existing, ok := h.airportState.Objects[objectID]
	now := time.Now()

	var newState any
	switch {
	case patch != nil:
		var base map[string]any
		if ok {
			if m, isObj := existing.State.(map[string]any); isObj {
				base = m
			}
		}
		if base == nil {
			base = map[string]any{}
		}
		merged, err := protocol.DeepMerge(base, patch, limits)
		if err != nil {
			if h.metrics != nil {
				h.metrics.MergeRejections.Inc()
			}
			return nil, err
		}
		newState = merged
	case resolved.IsBool:
		newState = resolved.Bool
	default:
		newState = resolved.Object
	}

	if !ok {
		existing = &AirportObject{ID: objectID}
		h.airportState.Objects[objectID] = existing
	}
	existing.State = newState
	existing.LastControllerID = senderUserID
	existing.UpdatedAt = now
	h.airportState.LastUpdateAt = now

	return newState, nil
}

// applySharedStatePatch runs spec.md §4.3.2.
func (h *Hub) applySharedStatePatch(patch map[string]any) error {
	merged, err := protocol.DeepMerge(h.sharedState, patch, h.mergeLimits())
	if err != nil {
		if h.metrics != nil {
			h.metrics.MergeRejections.Inc()
		}
		return err
	}
	h.sharedState = merged
	return nil
}

func (h *Hub) mergeLimits() protocol.MergeLimits {
	return protocol.MergeLimits{
		MaxDepth:      h.opts.MergeMaxDepth,
		MaxProperties: h.opts.MergeMaxProperties,
		MaxArraySize:  h.opts.MergeMaxArraySize,
		MaxKeyLength:  100,
	}
}
