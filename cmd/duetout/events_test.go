package main

import "testing"

func TestUnmarshalEvent_SwitchMode(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"type":"switch_mode","data":{"mode":"combined"}}`))
	if err != nil {
		t.Fatalf("UnmarshalEvent failed: %v", err)
	}
	sm, ok := ev.(SwitchMode)
	if !ok {
		t.Fatalf("expected SwitchMode, got %T", ev)
	}
	if sm.Mode != "combined" {
		t.Fatalf("expected mode combined, got %s", sm.Mode)
	}
}

func TestUnmarshalEvent_UnknownTypeRejected(t *testing.T) {
	if _, err := UnmarshalEvent([]byte(`{"type":"reboot"}`)); err == nil {
		t.Fatal("expected unknown event type to be rejected")
	}
}

func TestMarshalEvent_RoundTrip(t *testing.T) {
	b, err := MarshalEvent(SaveSelection{PrimaryUID: "bt-a", SecondaryUID: "bt-b"})
	if err != nil {
		t.Fatalf("MarshalEvent failed: %v", err)
	}
	ev, err := UnmarshalEvent(b)
	if err != nil {
		t.Fatalf("UnmarshalEvent failed: %v", err)
	}
	ss, ok := ev.(SaveSelection)
	if !ok || ss.PrimaryUID != "bt-a" || ss.SecondaryUID != "bt-b" {
		t.Fatalf("unexpected round-trip result: %#v", ev)
	}
}

func TestMarshalEvent_ObservationsNotRepresentable(t *testing.T) {
	// Snapshot requests carry a channel and must never cross the wire.
	if _, err := MarshalEvent(RequestStateSnapshot{}); err == nil {
		t.Fatal("expected snapshot request to be unmarshalable")
	}
}
