// Package store defines the Durable State Store port (spec.md §2.5): the
// key/value persistence scoped to a single Hub, plus the shared
// process-wide ActiveHubEntry table (spec.md §3, §6.3).
package store

import (
	"context"
	"time"
)

// ActiveHubEntry is a process-wide row advertising a currently live Hub
// (spec.md §3). Label is "<icao>/<ctlCount>/<pilotCount>/<obsCount>".
type ActiveHubEntry struct {
	HubID         string
	Label         string
	LastUpdatedAt time.Time
}

// ActiveHubHorizon is the age past which a reader garbage-collects an
// ActiveHubEntry row (spec.md §3, §6.2: "after pruning rows older than 2
// days").
const ActiveHubHorizon = 48 * time.Hour

// Store is the Durable State Store port. Get/Set/Delete operate on the two
// per-airport keyed blobs (airport_state:<icao>, airport_shared_state:<icao>);
// the active_connections counter (spec.md §6.3) is kept apart from them and
// reached only through IncrementCounter; the ActiveHub* methods operate on
// the separate shared table of spec.md §3.
//
// Implementations must tolerate a missing key (Get returns ok=false, not an
// error) and must make writes best-effort: a Set that fails should be
// logged by the caller and never treated as fatal (spec.md §4.7).
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// IncrementCounter atomically adds delta to the named counter (used for
	// active_connections) and returns the new value.
	IncrementCounter(ctx context.Context, key string, delta int64) (int64, error)

	UpsertActiveHub(ctx context.Context, entry ActiveHubEntry) error
	DeleteActiveHub(ctx context.Context, hubID string) error

	// ListActiveHubs returns every ActiveHubEntry not older than
	// ActiveHubHorizon, pruning older rows as it goes (spec.md §3: "garbage
	// collected by readers").
	ListActiveHubs(ctx context.Context) ([]ActiveHubEntry, error)
}

// Keys used against the per-airport blob namespace (spec.md §6.3).
func AirportStateKey(airport string) string       { return "airport_state:" + airport }
func AirportSharedStateKey(airport string) string { return "airport_shared_state:" + airport }

// ActiveConnectionsCounterKey is the single shared counter key.
const ActiveConnectionsCounterKey = "active_connections"
