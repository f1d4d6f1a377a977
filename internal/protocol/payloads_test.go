package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestStateUpdateData_Resolve_BoolState(t *testing.T) {
	d := StateUpdateData{ObjectID: "STOPBAR_1", State: json.RawMessage("true")}
	_, state, err := d.Resolve(DefaultMergeLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state == nil || !state.IsBool || !state.Bool {
		t.Errorf("expected resolved bool state true, got %#v", state)
	}
}

func TestStateUpdateData_Resolve_ObjectState(t *testing.T) {
	d := StateUpdateData{ObjectID: "STOPBAR_1", State: json.RawMessage(`{"on":true}`)}
	_, state, err := d.Resolve(DefaultMergeLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state == nil || state.IsBool || state.Object["on"] != true {
		t.Errorf("expected resolved object state, got %#v", state)
	}
}

func TestStateUpdateData_Resolve_RejectsNullState(t *testing.T) {
	d := StateUpdateData{ObjectID: "STOPBAR_1", State: json.RawMessage("null")}
	_, _, err := d.Resolve(DefaultMergeLimits())
	if !errors.Is(err, ErrInvalidPacket) {
		t.Fatalf("expected ErrInvalidPacket for null state, got %v", err)
	}
}

func TestStateUpdateData_Resolve_RejectsNullStateWithWhitespace(t *testing.T) {
	d := StateUpdateData{ObjectID: "STOPBAR_1", State: json.RawMessage("  null  ")}
	_, _, err := d.Resolve(DefaultMergeLimits())
	if !errors.Is(err, ErrInvalidPacket) {
		t.Fatalf("expected ErrInvalidPacket for null state, got %v", err)
	}
}

func TestStateUpdateData_Resolve_RejectsArrayState(t *testing.T) {
	d := StateUpdateData{ObjectID: "STOPBAR_1", State: json.RawMessage("[1,2]")}
	_, _, err := d.Resolve(DefaultMergeLimits())
	if !errors.Is(err, ErrInvalidPacket) {
		t.Fatalf("expected ErrInvalidPacket for array state, got %v", err)
	}
}

func TestStateUpdateData_Resolve_RejectsBothPatchAndState(t *testing.T) {
	d := StateUpdateData{ObjectID: "STOPBAR_1", Patch: json.RawMessage(`{"a":1}`), State: json.RawMessage("true")}
	_, _, err := d.Resolve(DefaultMergeLimits())
	if !errors.Is(err, ErrInvalidPacket) {
		t.Fatalf("expected ErrInvalidPacket when both patch and state are set, got %v", err)
	}
}

func TestStateUpdateData_Resolve_RejectsInvalidObjectID(t *testing.T) {
	d := StateUpdateData{ObjectID: "bad id!", State: json.RawMessage("true")}
	_, _, err := d.Resolve(DefaultMergeLimits())
	if !errors.Is(err, ErrInvalidPacket) {
		t.Fatalf("expected ErrInvalidPacket for invalid objectId, got %v", err)
	}
}
