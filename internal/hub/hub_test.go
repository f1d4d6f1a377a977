package hub

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/stopbars/core/internal/analytics"
	"github.com/stopbars/core/internal/catalogue"
	"github.com/stopbars/core/internal/identity"
	"github.com/stopbars/core/internal/protocol"
	"github.com/stopbars/core/internal/store"
)

// fakeSocket is an in-memory Socket used by hub tests, grounded on the
// teacher's Client.SafeSend: Send never blocks and records everything it
// was given so a test can assert on it.
type fakeSocket struct {
	mu      sync.Mutex
	sent    [][]byte
	closed  bool
	closeRe string
}

func (f *fakeSocket) Send(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.sent = append(f.sent, data)
	return true
}

func (f *fakeSocket) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeRe = reason
}

func (f *fakeSocket) packets(t *testing.T) []protocol.Packet {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Packet, 0, len(f.sent))
	for _, raw := range f.sent {
		var p protocol.Packet
		if err := json.Unmarshal(raw, &p); err != nil {
			t.Fatalf("failed to decode sent packet: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func newTestHub(t *testing.T) (*Hub, context.Context) {
	t.Helper()
	return newTestHubWithOptions(t, DefaultOptions())
}

func newTestHubWithOptions(t *testing.T, opts Options) (*Hub, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cat := catalogue.NewMemoryCatalogue(map[string][]catalogue.Point{
		"EDDF": {{ID: "RWY25L", Kind: "stopbar"}, {ID: "TWY_A1", Kind: "taxiway"}},
	})
	h := New("EDDF", "hub-1", opts, zerolog.Nop(), store.NewMemoryStore(), cat,
		identity.NewMemoryOracle(), analytics.NoopSink{}, nil, nil, nil)
	go h.Run(ctx)
	return h, ctx
}

func register(t *testing.T, h *Hub, ctx context.Context, userID string, kind identity.ClientKind) (*fakeSocket, *protocol.Packet) {
	t.Helper()
	sock := &fakeSocket{}
	initial, err := h.Register(ctx, sock, &Identity{UserID: userID, Kind: kind})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return sock, initial
}

func TestRegister_PilotOfflineWithoutController(t *testing.T) {
	h, ctx := newTestHub(t)
	_, initial := register(t, h, ctx, "pilot-1", identity.KindPilot)

	var data map[string]any
	if err := json.Unmarshal(initial.Data, &data); err != nil {
		t.Fatalf("unmarshal initial data: %v", err)
	}
	if data["offline"] != true {
		t.Errorf("expected offline=true with no controller present, got %#v", data["offline"])
	}
}

func TestRegister_ControllerIsLive(t *testing.T) {
	h, ctx := newTestHub(t)
	_, initial := register(t, h, ctx, "ctl-1", identity.KindController)

	var data map[string]any
	if err := json.Unmarshal(initial.Data, &data); err != nil {
		t.Fatalf("unmarshal initial data: %v", err)
	}
	if data["offline"] != false {
		t.Errorf("expected offline=false for a connecting controller, got %#v", data["offline"])
	}
}

func sendPacket(t *testing.T, h *Hub, ctx context.Context, sock *fakeSocket, p protocol.Packet) {
	t.Helper()
	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal packet: %v", err)
	}
	h.Dispatch(ctx, sock, raw)
	time.Sleep(20 * time.Millisecond) // let the owner loop drain inboundCh
}

func TestStateUpdate_ControllerOnlyBroadcastsToOthers(t *testing.T) {
	h, ctx := newTestHub(t)
	ctlSock, _ := register(t, h, ctx, "ctl-1", identity.KindController)
	pilotSock, _ := register(t, h, ctx, "pilot-1", identity.KindPilot)

	sendPacket(t, h, ctx, ctlSock, protocol.Packet{
		Type: protocol.TypeStateUpdate,
		Data: marshalData(map[string]any{"objectId": "RWY25L", "state": true}),
	})

	for _, p := range ctlSock.packets(t) {
		if p.Type == protocol.TypeStateUpdate {
			t.Errorf("sender must not receive its own STATE_UPDATE broadcast")
		}
	}
	found := false
	for _, p := range pilotSock.packets(t) {
		if p.Type == protocol.TypeStateUpdate {
			found = true
		}
	}
	if !found {
		t.Error("expected the other connected socket to receive the STATE_UPDATE broadcast")
	}
}

func TestStateUpdate_RejectsNonController(t *testing.T) {
	h, ctx := newTestHub(t)
	pilotSock, _ := register(t, h, ctx, "pilot-1", identity.KindPilot)

	sendPacket(t, h, ctx, pilotSock, protocol.Packet{
		Type: protocol.TypeStateUpdate,
		Data: marshalData(map[string]any{"objectId": "RWY25L", "state": true}),
	})

	found := false
	for _, p := range pilotSock.packets(t) {
		if p.Type == protocol.TypeError {
			found = true
		}
	}
	if !found {
		t.Error("expected an ERROR packet when a pilot sends STATE_UPDATE")
	}
}

func TestSharedStateUpdate_BroadcastsToSenderToo(t *testing.T) {
	h, ctx := newTestHub(t)
	ctlSock, _ := register(t, h, ctx, "ctl-1", identity.KindController)

	sendPacket(t, h, ctx, ctlSock, protocol.Packet{
		Type: protocol.TypeSharedStateUpdate,
		Data: marshalData(map[string]any{"sharedStatePatch": map[string]any{"runwayInUse": "25L"}}),
	})

	found := false
	for _, p := range ctlSock.packets(t) {
		if p.Type == protocol.TypeSharedStateUpdate {
			found = true
		}
	}
	if !found {
		t.Error("expected SHARED_STATE_UPDATE to broadcast back to the sender")
	}
}

func TestStopbarCrossing_VisibleToControllersOnly(t *testing.T) {
	h, ctx := newTestHub(t)
	ctlSock, _ := register(t, h, ctx, "ctl-1", identity.KindController)
	pilotSock, _ := register(t, h, ctx, "pilot-1", identity.KindPilot)
	otherPilotSock, _ := register(t, h, ctx, "pilot-2", identity.KindPilot)

	sendPacket(t, h, ctx, pilotSock, protocol.Packet{
		Type: protocol.TypeStopbarCrossing,
		Data: marshalData(map[string]any{"objectId": "RWY25L"}),
	})

	ctlGot := false
	for _, p := range ctlSock.packets(t) {
		if p.Type == protocol.TypeStopbarCrossing {
			ctlGot = true
		}
	}
	if !ctlGot {
		t.Error("expected the controller to see the STOPBAR_CROSSING broadcast")
	}
	for _, p := range otherPilotSock.packets(t) {
		if p.Type == protocol.TypeStopbarCrossing {
			t.Error("a pilot must never receive a STOPBAR_CROSSING broadcast")
		}
	}
}

func TestGetState_DoesNotTriggerStaleCleanup(t *testing.T) {
	h, ctx := newTestHub(t)
	ctlSock, _ := register(t, h, ctx, "ctl-1", identity.KindController)

	sendPacket(t, h, ctx, ctlSock, protocol.Packet{
		Type: protocol.TypeStateUpdate,
		Data: marshalData(map[string]any{"objectId": "RWY25L", "state": true}),
	})
	h.Disconnect(ctx, ctlSock, "normal")
	// Register before backdating: Register itself runs the stale check.
	pilotSock, _ := register(t, h, ctx, "pilot-1", identity.KindPilot)

	// Force LastUpdateAt far enough in the past that a stale check would clear it.
	h.airportState.LastUpdateAt = time.Now().Add(-time.Hour)
	sendPacket(t, h, ctx, pilotSock, protocol.Packet{Type: protocol.TypeGetState})

	var snap map[string]any
	for _, p := range pilotSock.packets(t) {
		if p.Type == protocol.TypeStateSnapshot {
			_ = json.Unmarshal(p.Data, &snap)
		}
	}
	if snap == nil {
		t.Fatal("expected a STATE_SNAPSHOT reply")
	}
	// With no controller the snapshot shows the catalogue baseline, so the
	// live object map is what shows whether cleanup ran.
	if _, ok := h.airportState.Objects["RWY25L"]; !ok {
		t.Error("GET_STATE must not trigger stale cleanup; expected the prior state update to still be held")
	}
}

func TestOversizedPacket_NeverMutatesState(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxPacketChars = 10
	h, ctx := newTestHubWithOptions(t, opts)

	ctlSock, _ := register(t, h, ctx, "ctl-1", identity.KindController)
	sendPacket(t, h, ctx, ctlSock, protocol.Packet{
		Type: protocol.TypeStateUpdate,
		Data: marshalData(map[string]any{"objectId": "RWY25L", "state": true}),
	})

	if len(h.airportState.Objects) != 0 {
		t.Errorf("an oversized packet must be rejected before it mutates state, got %#v", h.airportState.Objects)
	}
}
