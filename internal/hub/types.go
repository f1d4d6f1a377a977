package hub

import (
	"time"

	"github.com/stopbars/core/internal/identity"
)

// Session is the per-socket record a Hub keeps (spec.md §3).
type Session struct {
	ID              string
	UserID          string
	Kind            identity.ClientKind
	Airport         string
	LastHeartbeatAt time.Time
	heartbeatTicks  int // used to derive the "every other tick" revalidation cadence
}

// AirportObject is one illuminated airfield object (spec.md §3). State is
// either a bool (legacy on/off) or a JSON object (patch target); it is
// never an array or null.
type AirportObject struct {
	ID               string
	State            any // bool or map[string]any
	LastControllerID string
	UpdatedAt        time.Time
}

// AirportState is the authoritative per-airport object model a Hub owns.
type AirportState struct {
	Airport       string
	Objects       map[string]*AirportObject
	LastUpdateAt  time.Time
	ControllerIDs map[string]struct{}
}

func newAirportState(airport string) *AirportState {
	return &AirportState{
		Airport:       airport,
		Objects:       make(map[string]*AirportObject),
		ControllerIDs: make(map[string]struct{}),
	}
}

// SharedState is the free-form per-airport cooperative scratchpad (spec.md
// §3). The top level is always an object.
type SharedState map[string]any

// RoleCounts tracks how many sockets of each kind are currently connected,
// used for the ActiveHubEntry label (spec.md §3). Offline detection does
// not use it; isOffline reads AirportState.ControllerIDs.
type RoleCounts struct {
	Controllers int
	Pilots      int
	Observers   int
}
