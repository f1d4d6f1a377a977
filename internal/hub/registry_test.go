package hub

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stopbars/core/internal/analytics"
	"github.com/stopbars/core/internal/catalogue"
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	reg := NewRegistry(ctx, zerolog.Nop(), DefaultOptions(), store.NewMemoryStore(),
		catalogue.NewMemoryCatalogue(nil), identity.NewMemoryOracle(), analytics.NoopSink{}, nil)
	t.Cleanup(reg.Shutdown)
	return reg
}

func TestRegistry_RouteRejectsInvalidAirport(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.Route(context.Background(), "bad"); !errors.Is(err, ErrInvalidAirport) {
		t.Fatalf("expected ErrInvalidAirport, got %v", err)
	}
}

func TestRegistry_RouteIsIdempotent(t *testing.T) {
	reg := newTestRegistry(t)
	h1, err := reg.Route(context.Background(), "EDDF")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	h2, err := reg.Route(context.Background(), "EDDF")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if h1 != h2 {
		t.Error("expected repeated Route calls for the same airport to return the same Hub")
	}
}

func TestRegistry_RouteConcurrentCallsConvergeOnOneHub(t *testing.T) {
	reg := newTestRegistry(t)

	const n = 20
	hubs := make([]*Hub, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			h, err := reg.Route(context.Background(), "KJFK")
			if err != nil {
				t.Errorf("route: %v", err)
				return
			}
			hubs[i] = h
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if hubs[i] != hubs[0] {
			t.Fatalf("expected every concurrent Route call to converge on one Hub, got a second instance at index %d", i)
		}
	}
}
