package hub

import (
	"context"
	"time"

	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/protocol"
)

type inboundOp struct {
	socket Socket
	raw    []byte
}

// Dispatch enqueues a raw inbound frame for processing by the owner loop
// (spec.md §4.3). It is safe to call from the façade's per-socket read
// loop; ordering across sockets is whatever order frames reach this
// channel, which satisfies the per-airport FIFO contract of spec.md §5
// because all sends funnel through this one channel before anything mutates
// state.
func (h *Hub) Dispatch(ctx context.Context, socket Socket, raw []byte) {
	select {
	case h.inboundCh <- &inboundOp{socket: socket, raw: raw}:
	case <-ctx.Done():
	}
}

func (h *Hub) handleInbound(ctx context.Context, op *inboundOp) {
	session, ok := h.sockets[op.socket]
	if !ok {
		return // stale frame from a socket already unregistered
	}

	packet, err := protocol.Decode(op.raw, h.opts.MaxPacketChars)
	if err != nil {
		h.reply(op.socket, protocol.NewError(err.Error()))
		h.countPacket("decode_error", "rejected")
		return
	}

	session.LastHeartbeatAt = time.Now()

	if err := protocol.ValidateEnvelope(packet); err != nil {
		h.reply(op.socket, protocol.NewError(err.Error()))
		h.countPacket(packet.Type, "rejected")
		return
	}
	if packet.Airport == "" {
		packet.Airport = session.Airport
	}

	switch packet.Type {
	case protocol.TypeHeartbeat:
		h.reply(op.socket, &protocol.Packet{Type: protocol.TypeHeartbeatAck})

	case protocol.TypeGetState:
		h.handleGetState(ctx, op.socket, packet)

	case protocol.TypeStateUpdate:
		h.handleStateUpdate(session, op.socket, packet)

	case protocol.TypeSharedStateUpdate:
		h.handleSharedStateUpdate(session, op.socket, packet)

	case protocol.TypeStopbarCrossing:
		h.handleStopbarCrossing(session, op.socket, packet)

	case protocol.TypeClose:
		h.disconnect(ctx, op.socket, "normal")

	default:
		h.reply(op.socket, protocol.NewError("unknown_type"))
		h.countPacket(packet.Type, "rejected")
	}
}

func (h *Hub) reply(socket Socket, p *protocol.Packet) {
	data := h.encode(p)
	if data == nil {
		return
	}
	socket.Send(data)
}

func (h *Hub) countPacket(packetType, outcome string) {
	if h.metrics != nil {
		h.metrics.PacketsTotal.WithLabelValues(packetType, outcome).Inc()
	}
}

func (h *Hub) handleGetState(ctx context.Context, socket Socket, packet *protocol.Packet) {
	offline := h.isOffline()
	objects, err := h.snapshotObjects(ctx, offline)
	if err != nil {
		h.log.Warn().Err(err).Msg("GET_STATE: failed to read catalogue")
		objects = []objectView{}
	}
	data := marshalData(map[string]any{
		"objects":     objects,
		"sharedState": h.sharedState,
		"offline":     offline,
		"requestedAt": time.Now().UnixMilli(),
	})
	h.reply(socket, &protocol.Packet{Type: protocol.TypeStateSnapshot, Airport: h.airport, Data: data})
	h.countPacket(packet.Type, "ok")
}

func (h *Hub) handleStateUpdate(session *Session, socket Socket, packet *protocol.Packet) {
	if session.Kind != identity.KindController {
		h.reply(socket, protocol.NewError("not_authorized_for_packet"))
		h.countPacket(packet.Type, "rejected")
		return
	}

	var data protocol.StateUpdateData
	if err := packet.DataAs(&data); err != nil {
		h.reply(socket, protocol.NewError(err.Error()))
		h.countPacket(packet.Type, "rejected")
		return
	}

	newState, err := h.applyStateUpdate(data.ObjectID, session.UserID, data)
	if err != nil {
		h.reply(socket, protocol.NewError(err.Error()))
		h.countPacket(packet.Type, "rejected")
		return
	}

	out := &protocol.Packet{
		Type:    protocol.TypeStateUpdate,
		Airport: h.airport,
		Data: marshalData(map[string]any{
			"objectId":     data.ObjectID,
			"state":        newState,
			"controllerId": session.UserID,
		}),
	}
	h.broadcastAll(out, socket)
	h.persistAirportState()
	h.emit("state_update", map[string]any{"objectId": data.ObjectID, "userId": session.UserID})
	h.countPacket(packet.Type, "ok")
}

func (h *Hub) handleSharedStateUpdate(session *Session, socket Socket, packet *protocol.Packet) {
	if session.Kind != identity.KindController {
		h.reply(socket, protocol.NewError("not_authorized_for_packet"))
		h.countPacket(packet.Type, "rejected")
		return
	}

	var data protocol.SharedStateUpdateData
	if err := packet.DataAs(&data); err != nil {
		h.reply(socket, protocol.NewError(err.Error()))
		h.countPacket(packet.Type, "rejected")
		return
	}
	if err := protocol.ValidatePatchSize(data.SharedStatePatch, h.opts.MaxPatchSize); err != nil {
		h.reply(socket, protocol.NewError(err.Error()))
		h.countPacket(packet.Type, "rejected")
		return
	}
	if err := h.applySharedStatePatch(data.SharedStatePatch); err != nil {
		h.reply(socket, protocol.NewError(err.Error()))
		h.countPacket(packet.Type, "rejected")
		return
	}

	out := &protocol.Packet{
		Type:    protocol.TypeSharedStateUpdate,
		Airport: h.airport,
		Data: marshalData(map[string]any{
			"sharedStatePatch": data.SharedStatePatch,
			"controllerId":     session.UserID,
		}),
	}
	// Broadcast including the sender so every client converges (spec.md §4.3.2).
	h.broadcastAll(out, nil)
	h.persistSharedState()
	h.countPacket(packet.Type, "ok")
}

func (h *Hub) handleStopbarCrossing(session *Session, socket Socket, packet *protocol.Packet) {
	if session.Kind != identity.KindPilot {
		h.reply(socket, protocol.NewError("not_authorized_for_packet"))
		h.countPacket(packet.Type, "rejected")
		return
	}

	var data protocol.StopbarCrossingData
	if err := packet.DataAs(&data); err != nil {
		h.countPacket(packet.Type, "rejected")
		return
	}

	out := &protocol.Packet{
		Type:    protocol.TypeStopbarCrossing,
		Airport: h.airport,
		Data: marshalData(map[string]any{
			"objectId":     data.ObjectID,
			"controllerId": session.UserID,
		}),
	}
	h.broadcastControllersOnly(out)
	h.emit("stopbar_crossing", map[string]any{"objectId": data.ObjectID, "userId": session.UserID})
	h.countPacket(packet.Type, "ok")
}
