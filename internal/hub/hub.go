package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stopbars/core/internal/analytics"
	"github.com/stopbars/core/internal/catalogue"
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/protocol"
	"github.com/stopbars/core/internal/store"
)

// panicRecoveryDelay mirrors the teacher's Hub.Run backoff before restarting
// a crashed owner loop.
const panicRecoveryDelay = 100 * time.Millisecond

// Hub is the single logical owner of one airport's state (spec.md §5): its
// airportState, sharedState, sockets and ActiveHubEntry bookkeeping are all
// mutated exclusively inside runLoop, which processes exactly one request
// channel at a time. Everything else (façade, heartbeat goroutines,
// Registry) talks to a Hub only through its exported methods, which send a
// request over a channel and wait for the owner to answer.
type Hub struct {
	airport string
	log     zerolog.Logger
	opts    Options

	store     store.Store
	catalogue catalogue.Catalogue
	oracle    identity.Oracle
	sink      analytics.Sink
	metrics   *Metrics
	hubID     string

	airportState *AirportState
	sharedState  SharedState
	sockets      map[Socket]*Session

	registerCh   chan *registerOp
	unregisterCh chan *unregisterOp
	inboundCh    chan *inboundOp
	snapshotCh   chan *snapshotOp
	sessionCh    chan *sessionOp
	staleTickCh  chan struct{}

	persistCh chan persistJob

	lastActiveHubUpdate time.Time
}

// New constructs a Hub for airport with persisted state already loaded by
// the caller (the Registry, which owns the one-time Store.Get calls at
// creation time per spec.md §4.1).
func New(airport, hubID string, opts Options, log zerolog.Logger, st store.Store, cat catalogue.Catalogue, oracle identity.Oracle, sink analytics.Sink, metrics *Metrics, airportState *AirportState, sharedState SharedState) *Hub {
	if airportState == nil {
		airportState = newAirportState(airport)
	}
	if sharedState == nil {
		sharedState = make(SharedState)
	}
	h := &Hub{
		airport:      airport,
		hubID:        hubID,
		log:          log.With().Str("component", "hub").Str("airport", airport).Logger(),
		opts:         opts,
		store:        st,
		catalogue:    cat,
		oracle:       oracle,
		sink:         sink,
		metrics:      metrics,
		airportState: airportState,
		sharedState:  sharedState,
		sockets:      make(map[Socket]*Session),
		registerCh:   make(chan *registerOp),
		unregisterCh: make(chan *unregisterOp),
		inboundCh:    make(chan *inboundOp, 256),
		snapshotCh:   make(chan *snapshotOp),
		sessionCh:    make(chan *sessionOp),
		staleTickCh:  make(chan struct{}),
		persistCh:    make(chan persistJob, 64),
	}
	return h
}

// Run starts the owner loop, the decoupled persistence writer, and the
// background stale-cleanup ticker. It blocks until ctx is canceled,
// recovering and restarting the owner loop on panic like the teacher's
// Hub.Run does.
func (h *Hub) Run(ctx context.Context) {
	go h.persistLoop(ctx)
	go h.staleTicker(ctx)

	for {
		if err := h.runLoop(ctx); err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				h.log.Info().Msg("hub shutting down")
				return
			}
			h.log.Error().Err(err).Msg("hub loop crashed, restarting")
			time.Sleep(panicRecoveryDelay)
			continue
		}
		return
	}
}

func (h *Hub) runLoop(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hub panic: %v\n%s", r, debug.Stack())
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-h.registerCh:
			h.handleRegister(ctx, op)
		case op := <-h.unregisterCh:
			h.handleUnregister(ctx, op)
		case op := <-h.inboundCh:
			h.handleInbound(ctx, op)
		case op := <-h.snapshotCh:
			h.handleSnapshot(ctx, op)
		case op := <-h.sessionCh:
			h.handleSessionQuery(op)
		case <-h.staleTickCh:
			h.handleStaleTick(ctx)
		}
	}
}

func (h *Hub) staleTicker(ctx context.Context) {
	t := time.NewTicker(h.opts.StaleTTL / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			select {
			case h.staleTickCh <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) roleCounts() RoleCounts {
	var rc RoleCounts
	for _, s := range h.sockets {
		switch s.Kind {
		case identity.KindController:
			rc.Controllers++
		case identity.KindPilot:
			rc.Pilots++
		case identity.KindObserver:
			rc.Observers++
		}
	}
	return rc
}

func (h *Hub) isOffline() bool {
	return len(h.airportState.ControllerIDs) == 0
}

func (h *Hub) encode(p *protocol.Packet) []byte {
	p.Timestamp = time.Now().UnixMilli()
	data, err := protocol.Encode(p)
	if err != nil {
		h.log.Error().Err(err).Str("type", p.Type).Msg("failed to encode outbound packet")
		return nil
	}
	return data
}

// emit fires an analytics event for this airport. Never blocks — the Sink
// contract (analytics.Sink) guarantees Emit itself doesn't (spec.md §5).
func (h *Hub) emit(name string, fields map[string]any) {
	if h.sink == nil {
		return
	}
	h.sink.Emit(analytics.Event{Name: name, Airport: h.airport, Fields: fields, At: time.Now()})
}

func marshalData(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
