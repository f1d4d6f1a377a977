package hub

import (
	"context"
	"time"

	"github.com/stopbars/core/internal/analytics"
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/protocol"
)

type registerOp struct {
	socket   Socket
	identity *Identity
	resp     chan *protocol.Packet
}

// Register performs spec.md §4.2 steps 6-8 for an already-authenticated
// connection: creates the Session, applies controller-join side effects,
// and returns the INITIAL_STATE packet to send to the new socket. Step 9
// (starting the heartbeat loop) is the caller's responsibility — see
// StartHeartbeat.
func (h *Hub) Register(ctx context.Context, socket Socket, ident *Identity) (*protocol.Packet, error) {
	op := &registerOp{socket: socket, identity: ident, resp: make(chan *protocol.Packet, 1)}
	select {
	case h.registerCh <- op:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case initial := <-op.resp:
		return initial, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) handleRegister(ctx context.Context, op *registerOp) {
	h.applyStaleCleanup()
	now := time.Now()
	session := &Session{
		ID:              op.identity.UserID + ":" + now.Format("150405.000000000"),
		UserID:          op.identity.UserID,
		Kind:            op.identity.Kind,
		Airport:         h.airport,
		LastHeartbeatAt: now,
	}
	h.sockets[op.socket] = session
	h.emit("session_connected", map[string]any{"userId": session.UserID, "kind": string(session.Kind)})

	if h.metrics != nil {
		h.metrics.ConnectedSockets.WithLabelValues(h.airport, string(session.Kind)).Inc()
	}

	if session.Kind == identity.KindController {
		h.airportState.ControllerIDs[session.UserID] = struct{}{}
		h.persistAirportState()
		h.broadcastControllerEvent(protocol.TypeControllerConnect, session.UserID, op.socket)
	}

	controllersPresent := !h.isOffline()
	useLive := session.Kind == identity.KindController || controllersPresent
	objects, err := h.snapshotObjects(ctx, !useLive)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to build initial state objects, sending empty set")
		objects = []objectView{}
	}

	data := marshalData(map[string]any{
		"objects":        objects,
		"connectionType": string(session.Kind),
		"offline":        !useLive,
		"sharedState":    h.sharedState,
	})
	initial := &protocol.Packet{Type: protocol.TypeInitialState, Airport: h.airport, Data: data}
	initial.Timestamp = now.UnixMilli()

	h.scheduleActiveHubUpdate(ctx)

	op.resp <- initial
}
