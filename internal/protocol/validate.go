package protocol

import (
	"encoding/json"
	"fmt"
)

// KnownClientTypes are the inbound packet types a Hub accepts from sockets
// (spec.md §6.1, client → server).
var KnownClientTypes = map[string]bool{
	TypeHeartbeat:         true,
	TypeGetState:          true,
	TypeStateUpdate:       true,
	TypeSharedStateUpdate: true,
	TypeStopbarCrossing:   true,
	TypeClose:             true,
}

// ValidateEnvelope checks the structural rules of spec.md §4.6 that apply to
// every inbound packet regardless of type: known type, non-negative
// timestamp if present. Per-type payload shape is validated by the
// payload-specific Resolve/unmarshal helpers in payloads.go.
func ValidateEnvelope(p *Packet) error {
	if !KnownClientTypes[p.Type] {
		return fmt.Errorf("%w: unknown_type %q", ErrUnknownType, p.Type)
	}
	if p.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp", ErrInvalidPacket)
	}
	return nil
}

// ValidatePatchSize re-serializes an arbitrary decoded patch and rejects it
// if it exceeds maxChars (spec.md's MAX_PATCH_SIZE, applied to
// SHARED_STATE_UPDATE.data.sharedStatePatch).
func ValidatePatchSize(patch map[string]any, maxChars int) error {
	if patch == nil {
		return fmt.Errorf("%w: sharedStatePatch must be a non-null object", ErrInvalidPacket)
	}
	data, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	if maxChars > 0 && len(data) > maxChars {
		return fmt.Errorf("%w: sharedStatePatch is %d chars, limit %d", ErrInvalidPacket, len(data), maxChars)
	}
	return nil
}
