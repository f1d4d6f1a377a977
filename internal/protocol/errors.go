package protocol

import "errors"

// Sentinel errors surfaced to dispatch as ERROR packet messages (spec.md §7).
var (
	ErrInvalidPacket       = errors.New("invalid_packet")
	ErrPacketTooLarge      = errors.New("invalid_packet")
	ErrNotAuthorized       = errors.New("not_authorized_for_packet")
	ErrMergeFailed         = errors.New("merge_failed")
	ErrUnknownType         = errors.New("unknown_type")
)
