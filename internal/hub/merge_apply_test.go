package hub

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stopbars/core/internal/protocol"
)

func newUnstartedHub() *Hub {
	return New("EDDF", "hub-test", DefaultOptions(), zerolog.Nop(), nil, nil, nil, nil, nil, nil, nil)
}

func TestApplyStateUpdate_PatchMergesIntoExistingObject(t *testing.T) {
	h := newUnstartedHub()

	first := protocol.StateUpdateData{ObjectID: "RWY25L", State: json.RawMessage(`{"on":true,"color":"red"}`)}
	if _, err := h.applyStateUpdate("RWY25L", "ctl-1", first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second := protocol.StateUpdateData{ObjectID: "RWY25L", Patch: json.RawMessage(`{"color":"green"}`)}
	state, err := h.applyStateUpdate("RWY25L", "ctl-2", second)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	obj, ok := state.(map[string]any)
	if !ok {
		t.Fatalf("expected merged object state, got %T", state)
	}
	if obj["on"] != true || obj["color"] != "green" {
		t.Errorf("expected patch to merge into existing object, got %#v", obj)
	}
	if h.airportState.Objects["RWY25L"].LastControllerID != "ctl-2" {
		t.Errorf("expected LastControllerID to be updated to the latest sender")
	}
}

func TestApplyStateUpdate_BoolStateReplacesWholesale(t *testing.T) {
	h := newUnstartedHub()

	data := protocol.StateUpdateData{ObjectID: "TWY_A1", State: json.RawMessage(`true`)}
	state, err := h.applyStateUpdate("TWY_A1", "ctl-1", data)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if state != true {
		t.Errorf("expected bool state true, got %#v", state)
	}
}

func TestApplySharedStatePatch_MergesAcrossCalls(t *testing.T) {
	h := newUnstartedHub()

	if err := h.applySharedStatePatch(map[string]any{"runwayInUse": "25L"}); err != nil {
		t.Fatalf("first patch: %v", err)
	}
	if err := h.applySharedStatePatch(map[string]any{"wind": "250/10"}); err != nil {
		t.Fatalf("second patch: %v", err)
	}

	if h.sharedState["runwayInUse"] != "25L" || h.sharedState["wind"] != "250/10" {
		t.Errorf("expected both patches to accumulate, got %#v", h.sharedState)
	}
}
