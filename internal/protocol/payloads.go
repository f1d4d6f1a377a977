package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
)

var objectIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateObjectID enforces the ^[A-Za-z0-9_-]+$ shape required of every
// AirportObject id (spec.md §4.3.1).
func ValidateObjectID(id string) error {
	if id == "" || !objectIDPattern.MatchString(id) {
		return fmt.Errorf("%w: invalid objectId %q", ErrInvalidPacket, id)
	}
	return nil
}

// StateUpdateData is the STATE_UPDATE.data payload. Exactly one of Patch or
// State must be set; State may decode to a bool or a JSON object, never an
// array or null (spec.md §4.3.1).
type StateUpdateData struct {
	ObjectID string          `json:"objectId"`
	Patch    json.RawMessage `json:"patch,omitempty"`
	State    json.RawMessage `json:"state,omitempty"`
}

// ResolvedState is the decoded, type-checked form of StateUpdateData.State.
type ResolvedState struct {
	IsBool bool
	Bool   bool
	Object map[string]any
}

// Resolve validates and decodes the union payload, returning exactly one of
// a patch object or a resolved state.
func (d StateUpdateData) Resolve(limits MergeLimits) (patch map[string]any, state *ResolvedState, err error) {
	if err := ValidateObjectID(d.ObjectID); err != nil {
		return nil, nil, err
	}

	hasPatch := len(d.Patch) > 0
	hasState := len(d.State) > 0
	if hasPatch == hasState {
		return nil, nil, fmt.Errorf("%w: exactly one of patch or state is required", ErrInvalidPacket)
	}

	if hasPatch {
		var p map[string]any
		if err := json.Unmarshal(d.Patch, &p); err != nil {
			return nil, nil, fmt.Errorf("%w: patch must be an object: %v", ErrInvalidPacket, err)
		}
		if err := ValidateShape(p, limits); err != nil {
			return nil, nil, err
		}
		return p, nil, nil
	}

	// hasState: must decode to bool or plain object, never array/null.
	// json.Unmarshal of a JSON null into a non-pointer bool returns a nil
	// error and leaves asBool false, so null must be rejected explicitly.
	if bytes.Equal(bytes.TrimSpace(d.State), []byte("null")) {
		return nil, nil, fmt.Errorf("%w: state must not be null", ErrInvalidPacket)
	}
	var asBool bool
	if err := json.Unmarshal(d.State, &asBool); err == nil {
		return nil, &ResolvedState{IsBool: true, Bool: asBool}, nil
	}
	var asObj map[string]any
	if err := json.Unmarshal(d.State, &asObj); err == nil {
		if err := ValidateShape(asObj, limits); err != nil {
			return nil, nil, err
		}
		return nil, &ResolvedState{Object: asObj}, nil
	}
	return nil, nil, fmt.Errorf("%w: state must be a bool or an object", ErrInvalidPacket)
}

// SharedStateUpdateData is the SHARED_STATE_UPDATE.data payload.
type SharedStateUpdateData struct {
	SharedStatePatch map[string]any `json:"sharedStatePatch"`
}

// StopbarCrossingData is the STOPBAR_CROSSING.data payload.
type StopbarCrossingData struct {
	ObjectID string `json:"objectId"`
}

// GetStateData is the optional GET_STATE.data payload (airport is read from
// the envelope, not this struct, but the type exists for symmetry/tests).
type GetStateData struct{}
