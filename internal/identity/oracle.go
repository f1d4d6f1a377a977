// Package identity defines the Identity Oracle port (spec.md §2.1): the
// external network that resolves a user's live controlling/flying status.
package identity

import (
	"context"
	"errors"
)

// ClientKind mirrors the classification spec.md §3 assigns a session:
// controller if the live status is ATC and the callsign is not an
// observer-suffixed one, observer if it is, pilot otherwise.
type ClientKind string

const (
	KindController ClientKind = "controller"
	KindObserver   ClientKind = "observer"
	KindPilot      ClientKind = "pilot"
)

// LiveStatus is a user's current network presence as reported by the
// Identity Oracle.
type LiveStatus struct {
	Callsign string
	Type     string // "atc" or "pilot"
}

// ErrNotPresent is returned by Status when the user has no live network
// presence. Callers must treat a transport error identically per spec.md §5
// ("any transport error as 'not present'"). Oracle implementations do not
// wrap transport failures in ErrNotPresent; callers treat any non-nil error
// as "not present" rather than relying on error identity.
var ErrNotPresent = errors.New("identity: user not present on network")

// Oracle resolves live controller/pilot status and ban state. Calls must
// respect ctx's deadline (the Hub sets IDENTITY_TIMEOUT, default 5s) and
// must not block the Hub owner's lock.
type Oracle interface {
	// Status returns the user's current live status. A transport error or a
	// genuine "not found" both mean "not present" to the caller; the Hub
	// does not distinguish them (spec.md §5, §7).
	Status(ctx context.Context, userID string) (*LiveStatus, error)

	// Banned reports whether the network has banned this user id.
	Banned(ctx context.Context, userID string) (bool, error)
}

// Classify derives a ClientKind from a live status, applying the
// observer-suffix rule from spec.md §4.2 step 5 / GLOSSARY.
func Classify(status *LiveStatus) ClientKind {
	if status == nil {
		return KindPilot
	}
	if status.Type != "atc" {
		return KindPilot
	}
	if isObserverCallsign(status.Callsign) {
		return KindObserver
	}
	return KindController
}

func isObserverCallsign(callsign string) bool {
	return len(callsign) >= 4 && callsign[len(callsign)-4:] == "_OBS"
}
