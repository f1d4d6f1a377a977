package hub

import (
	"context"
	"time"

	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/protocol"
)

type unregisterOp struct {
	socket Socket
	reason string
	done   chan struct{}
}

// Disconnect unregisters socket from outside the owner loop (a physical
// read error in the façade, or a heartbeat eviction decided by the
// per-socket loop below). For the CLOSE packet, handleInbound calls
// disconnect directly since it already runs on the owner goroutine.
func (h *Hub) Disconnect(ctx context.Context, socket Socket, reason string) {
	op := &unregisterOp{socket: socket, reason: reason, done: make(chan struct{})}
	select {
	case h.unregisterCh <- op:
	case <-ctx.Done():
		return
	}
	select {
	case <-op.done:
	case <-ctx.Done():
	}
}

func (h *Hub) handleUnregister(ctx context.Context, op *unregisterOp) {
	h.disconnect(ctx, op.socket, op.reason)
	close(op.done)
}

// disconnect is the owner-loop-only unregister implementation, shared by
// CLOSE packets, physical disconnects, and heartbeat/revalidation eviction.
func (h *Hub) disconnect(ctx context.Context, socket Socket, reason string) {
	session, ok := h.sockets[socket]
	if !ok {
		return
	}
	delete(h.sockets, socket)
	h.emit("session_disconnected", map[string]any{"userId": session.UserID, "kind": string(session.Kind), "reason": reason})
	if h.metrics != nil {
		h.metrics.ConnectedSockets.WithLabelValues(h.airport, string(session.Kind)).Dec()
	}

	if session.Kind == identity.KindController && !h.hasOtherController(session.UserID, socket) {
		delete(h.airportState.ControllerIDs, session.UserID)
		h.airportState.LastUpdateAt = time.Now()
		h.broadcastControllerEvent(protocol.TypeControllerDisconnect, session.UserID, socket)
		h.persistAirportState()
	}

	socket.Close(reason)
	h.scheduleActiveHubUpdate(ctx)
}

func (h *Hub) hasOtherController(userID string, except Socket) bool {
	for sock, sess := range h.sockets {
		if sock == except {
			continue
		}
		if sess.UserID == userID && sess.Kind == identity.KindController {
			return true
		}
	}
	return false
}

type sessionOp struct {
	socket Socket
	resp   chan sessionTickResult
}

type sessionTickResult struct {
	exists          bool
	timedOut        bool
	needsRevalidate bool
	session         Session
}

// tickHeartbeat runs spec.md §4.4 steps 1-3 synchronously on the owner:
// checks the socket is still registered, reports silence past
// HEARTBEAT_TIMEOUT (the caller, StartHeartbeat, does the eviction), and
// advances the tick counter to decide whether this round needs Identity
// Oracle revalidation. The revalidation call itself
// happens off the owner in the caller's goroutine (step 3's network round
// trip must not block the Hub).
func (h *Hub) tickHeartbeat(ctx context.Context, socket Socket) sessionTickResult {
	op := &sessionOp{socket: socket, resp: make(chan sessionTickResult, 1)}
	select {
	case h.sessionCh <- op:
	case <-ctx.Done():
		return sessionTickResult{}
	}
	select {
	case res := <-op.resp:
		return res
	case <-ctx.Done():
		return sessionTickResult{}
	}
}

func (h *Hub) handleSessionQuery(op *sessionOp) {
	session, ok := h.sockets[op.socket]
	if !ok {
		op.resp <- sessionTickResult{exists: false}
		return
	}
	if time.Since(session.LastHeartbeatAt) > h.opts.HeartbeatTimeout {
		op.resp <- sessionTickResult{exists: true, timedOut: true, session: *session}
		return
	}
	session.heartbeatTicks++
	op.resp <- sessionTickResult{
		exists:          true,
		needsRevalidate: session.heartbeatTicks%2 == 0,
		session:         *session,
	}
}

// StartHeartbeat runs spec.md §4.4 for one socket until it stops being
// registered or ctx is canceled. It is spawned once per accepted
// connection (spec.md §4.2 step 9).
func (h *Hub) StartHeartbeat(ctx context.Context, socket Socket) {
	ticker := time.NewTicker(h.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res := h.tickHeartbeat(ctx, socket)
			if !res.exists {
				return
			}
			if res.timedOut {
				h.disconnectOwnerSafe(ctx, socket, "heartbeat_timeout")
				return
			}
			if res.needsRevalidate && !h.revalidate(ctx, socket, res.session) {
				return
			}
			h.reply(socket, &protocol.Packet{Type: protocol.TypeHeartbeat})
		}
	}
}

// disconnectOwnerSafe is Disconnect for callers already outside the owner
// loop (every StartHeartbeat caller qualifies — it runs in its own
// goroutine), named distinctly from the package-private disconnect to keep
// the "only the owner calls disconnect directly" invariant obvious at call
// sites.
func (h *Hub) disconnectOwnerSafe(ctx context.Context, socket Socket, reason string) {
	h.Disconnect(ctx, socket, reason)
}

// revalidate performs spec.md §4.4 step 3. It returns false if the session
// was evicted (caller must stop its heartbeat loop).
func (h *Hub) revalidate(ctx context.Context, socket Socket, session Session) bool {
	rctx, cancel := context.WithTimeout(ctx, h.opts.IdentityTimeout)
	defer cancel()

	banned, err := h.oracle.Banned(rctx, session.UserID)
	if err == nil && banned {
		h.reply(socket, protocol.NewError("banned"))
		h.countRevalidation("banned")
		h.disconnectOwnerSafe(ctx, socket, "banned")
		return false
	}

	status, err := h.oracle.Status(rctx, session.UserID)
	if err != nil || status == nil {
		h.reply(socket, protocol.NewError("not_on_network"))
		h.countRevalidation("not_on_network")
		h.disconnectOwnerSafe(ctx, socket, "not_on_network")
		return false
	}

	if identity.Classify(status) != session.Kind {
		h.reply(socket, protocol.NewError("role_changed"))
		h.countRevalidation("role_changed")
		h.disconnectOwnerSafe(ctx, socket, "role_changed")
		return false
	}

	h.countRevalidation("ok")
	return true
}

func (h *Hub) countRevalidation(result string) {
	if h.metrics != nil {
		h.metrics.RevalidationsTotal.WithLabelValues(result).Inc()
	}
}
