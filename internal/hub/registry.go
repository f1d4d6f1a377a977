package hub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/stopbars/core/internal/analytics"
	"github.com/stopbars/core/internal/catalogue"
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/store"
)

// ErrInvalidAirport is returned by Route/GetStateSnapshot for a malformed
// airport code (spec.md §4.1).
var ErrInvalidAirport = errors.New("invalid_airport")

// Registry is the Hub Registry of spec.md §4.1: it owns the process-wide
// map from airport code to Hub, creating Hubs idempotently under
// concurrent demand.
type Registry struct {
	log       zerolog.Logger
	opts      Options
	store     store.Store
	catalogue catalogue.Catalogue
	oracle    identity.Oracle
	sink      analytics.Sink
	metrics   *Metrics

	mu    sync.Mutex
	hubs  map[string]*Hub
	group singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry constructs a Registry bound to ctx: every Hub it creates is
// run as a child of ctx and stops when ctx is canceled.
func NewRegistry(ctx context.Context, log zerolog.Logger, opts Options, st store.Store, cat catalogue.Catalogue, oracle identity.Oracle, sink analytics.Sink, metrics *Metrics) *Registry {
	rctx, cancel := context.WithCancel(ctx)
	return &Registry{
		log:       log.With().Str("component", "registry").Logger(),
		opts:      opts,
		store:     st,
		catalogue: cat,
		oracle:    oracle,
		sink:      sink,
		metrics:   metrics,
		hubs:      make(map[string]*Hub),
		ctx:       rctx,
		cancel:    cancel,
	}
}

// Shutdown cancels every running Hub and waits for their owner loops to
// exit.
func (r *Registry) Shutdown() {
	r.cancel()
	r.wg.Wait()
}

// Route returns the Hub for airport, creating and starting it if this is
// the first request for it. Concurrent Route calls for the same airport
// converge on exactly one Hub (spec.md §4.1).
func (r *Registry) Route(ctx context.Context, airport string) (*Hub, error) {
	if !ValidAirportCode(airport) {
		return nil, ErrInvalidAirport
	}

	r.mu.Lock()
	if h, ok := r.hubs[airport]; ok {
		r.mu.Unlock()
		return h, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(airport, func() (any, error) {
		r.mu.Lock()
		if h, ok := r.hubs[airport]; ok {
			r.mu.Unlock()
			return h, nil
		}
		r.mu.Unlock()

		airportState := LoadAirportState(ctx, r.store, airport)
		sharedState := LoadSharedState(ctx, r.store, airport)

		h := New(airport, uuid.NewString(), r.opts, r.log, r.store, r.catalogue, r.oracle, r.sink, r.metrics, airportState, sharedState)

		r.mu.Lock()
		r.hubs[airport] = h
		r.mu.Unlock()

		if r.metrics != nil {
			r.metrics.ActiveHubs.Inc()
		}

		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			h.Run(r.ctx)
		}()

		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Hub), nil
}

// GetStateSnapshot implements spec.md §4.1's get_state_snapshot: it routes
// to (creating if necessary) the airport's Hub and asks it for a snapshot
// without opening a socket.
func (r *Registry) GetStateSnapshot(ctx context.Context, airport string, offlineForced bool) (*snapshotResult, error) {
	h, err := r.Route(ctx, airport)
	if err != nil {
		return nil, err
	}
	return h.Snapshot(ctx, offlineForced)
}

// ListActiveAirports enumerates every ActiveHubEntry in the Durable State
// Store (after pruning rows older than the 2-day horizon) and aggregates
// each into a snapshot, for the façade's `airport=all` query (spec.md §6.2).
func (r *Registry) ListActiveAirports(ctx context.Context) ([]*snapshotResult, error) {
	if r.store == nil {
		return nil, fmt.Errorf("active hub enumeration requires a Durable State Store")
	}
	entries, err := r.store.ListActiveHubs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	out := make([]*snapshotResult, 0, len(entries))
	for _, e := range entries {
		airport := activeHubAirport(e.Label)
		if airport == "" || seen[airport] {
			continue
		}
		seen[airport] = true
		snap, err := r.GetStateSnapshot(ctx, airport, false)
		if err != nil {
			r.log.Warn().Err(err).Str("airport", airport).Msg("failed to snapshot active hub")
			continue
		}
		out = append(out, snap)
	}
	return out, nil
}

// activeHubAirport extracts the icao prefix from a "<icao>/<ctl>/<pilot>/<obs>" label.
func activeHubAirport(label string) string {
	for i, c := range label {
		if c == '/' {
			return label[:i]
		}
	}
	return ""
}
