// Package protocol defines the JSON wire envelope exchanged between a Hub
// and its sockets, and the structural validation and deep-merge rules that
// govern its payloads.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Packet types sent by a client.
const (
	TypeHeartbeat          = "HEARTBEAT"
	TypeGetState           = "GET_STATE"
	TypeStateUpdate        = "STATE_UPDATE"
	TypeSharedStateUpdate  = "SHARED_STATE_UPDATE"
	TypeStopbarCrossing    = "STOPBAR_CROSSING"
	TypeClose              = "CLOSE"
)

// Packet types sent by the Hub.
const (
	TypeHeartbeatAck       = "HEARTBEAT_ACK"
	TypeInitialState       = "INITIAL_STATE"
	TypeStateSnapshot      = "STATE_SNAPSHOT"
	TypeControllerConnect  = "CONTROLLER_CONNECT"
	TypeControllerDisconnect = "CONTROLLER_DISCONNECT"
	TypeError              = "ERROR"
)

// Packet is the discriminated-union envelope described in spec.md §6.1.
// Airport defaults to the owning Session's airport when empty on ingress;
// Timestamp is always server-set on egress.
type Packet struct {
	Type      string          `json:"type"`
	Airport   string          `json:"airport,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Decode parses a raw inbound frame into a Packet, enforcing the size cap
// ahead of any structural or merge validation so an oversized frame never
// reaches the merge engine.
func Decode(raw []byte, maxChars int) (*Packet, error) {
	if maxChars > 0 && len(raw) > maxChars {
		return nil, fmt.Errorf("%w: %d chars exceeds limit of %d", ErrPacketTooLarge, len(raw), maxChars)
	}
	var p Packet
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid_packet: %w", err)
	}
	if p.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidPacket)
	}
	return &p, nil
}

// Encode serializes a Packet for the wire. Callers are expected to have
// already stamped Timestamp (server time) before calling Encode.
func Encode(p *Packet) ([]byte, error) {
	return json.Marshal(p)
}

// DataAs unmarshals Data into target, returning ErrInvalidPacket wrapped
// with the underlying decode error on failure.
func (p *Packet) DataAs(target any) error {
	if len(p.Data) == 0 {
		return fmt.Errorf("%w: empty data", ErrInvalidPacket)
	}
	if err := json.Unmarshal(p.Data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPacket, err)
	}
	return nil
}

// NewError builds a server ERROR packet carrying a human-readable message.
func NewError(message string) *Packet {
	data, _ := json.Marshal(map[string]string{"message": message})
	return &Packet{Type: TypeError, Data: data}
}
