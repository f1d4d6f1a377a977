package hub

import (
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/protocol"
)

// fanout delivers data to every registered socket for which keep returns
// true, except excludeSocket (pass nil to exclude none). Socket.Send must
// not block (see socket.go), so iterating sequentially here still satisfies
// spec.md §5's "a slow/failed send to one client must never delay delivery
// to others": no single call can stall the loop.
func (h *Hub) fanout(data []byte, excludeSocket Socket, keep func(*Session) bool) {
	if data == nil {
		return
	}
	for sock, sess := range h.sockets {
		if sock == excludeSocket {
			continue
		}
		if keep != nil && !keep(sess) {
			continue
		}
		if !sock.Send(data) {
			h.log.Warn().Str("userId", sess.UserID).Msg("dropped broadcast, send failed")
		}
	}
}

func (h *Hub) broadcastAll(p *protocol.Packet, excludeSocket Socket) {
	data := h.encode(p)
	h.fanout(data, excludeSocket, nil)
	if h.metrics != nil {
		h.metrics.BroadcastsTotal.WithLabelValues(p.Type).Inc()
	}
}

func (h *Hub) broadcastControllersOnly(p *protocol.Packet) {
	data := h.encode(p)
	h.fanout(data, nil, func(s *Session) bool { return s.Kind == identity.KindController })
	if h.metrics != nil {
		h.metrics.BroadcastsTotal.WithLabelValues(p.Type).Inc()
	}
}

// broadcastControllerEvent sends CONTROLLER_CONNECT/CONTROLLER_DISCONNECT to
// every other socket in the airport (spec.md §4.2 step 7, §4.5).
func (h *Hub) broadcastControllerEvent(packetType, userID string, exclude Socket) {
	p := &protocol.Packet{
		Type:    packetType,
		Airport: h.airport,
		Data:    marshalData(map[string]any{"controllerId": userID}),
	}
	h.broadcastAll(p, exclude)
}
