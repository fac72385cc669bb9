package main

import (
	"errors"
	"testing"
)

func TestAggregateController_CreateReplacesPrevious(t *testing.T) {
	backend := newMockBackend()
	ctrl := NewAggregateController(backend, "Test Combined", testLogger())

	primary := AudioDevice{ID: 20, UID: "bt-a", Name: "A"}
	secondary := AudioDevice{ID: 30, UID: "bt-b", Name: "B"}

	h1, err := ctrl.CreateCombined(primary, secondary)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	h2, err := ctrl.CreateCombined(primary, secondary)
	if err != nil {
		t.Fatalf("second create failed: %v", err)
	}

	if h1 == h2 {
		t.Fatal("expected a fresh handle from the second create")
	}
	if len(backend.destroyCalls) != 1 || backend.destroyCalls[0] != h1 {
		t.Fatalf("expected the first aggregate destroyed before recreating, got %v", backend.destroyCalls)
	}
	if !ctrl.Live() || ctrl.Handle() != h2 {
		t.Fatalf("expected controller tracking %d, got live=%v handle=%d", h2, ctrl.Live(), ctrl.Handle())
	}
	if backend.createCalls[1].Name != "Test Combined" {
		t.Errorf("expected configured aggregate name, got %q", backend.createCalls[1].Name)
	}
}

func TestAggregateController_DestroyIsIdempotent(t *testing.T) {
	backend := newMockBackend()
	ctrl := NewAggregateController(backend, "", testLogger())

	if err := ctrl.DestroyCombined(); err != nil {
		t.Fatalf("destroy without a live aggregate must be a no-op: %v", err)
	}
	if len(backend.destroyCalls) != 0 {
		t.Fatalf("expected no OS destroy call, got %v", backend.destroyCalls)
	}
}

func TestAggregateController_DestroyFailureRetainsHandle(t *testing.T) {
	backend := newMockBackend()
	ctrl := NewAggregateController(backend, "", testLogger())

	h, err := ctrl.CreateCombined(
		AudioDevice{ID: 20, UID: "bt-a", Name: "A"},
		AudioDevice{ID: 30, UID: "bt-b", Name: "B"},
	)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	backend.destroyErr = errors.New("device busy")
	if err := ctrl.DestroyCombined(); err == nil {
		t.Fatal("expected destroy to report the OS error")
	}
	if !ctrl.Live() || ctrl.Handle() != h {
		t.Fatalf("expected handle %d retained for retry, got live=%v handle=%d", h, ctrl.Live(), ctrl.Handle())
	}

	backend.destroyErr = nil
	if err := ctrl.DestroyCombined(); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if ctrl.Live() {
		t.Fatal("expected controller cleared after successful retry")
	}
}

func TestAggregateController_CreateFailurePropagates(t *testing.T) {
	backend := newMockBackend()
	backend.createErr = errors.New("hal refused")
	ctrl := NewAggregateController(backend, "", testLogger())

	_, err := ctrl.CreateCombined(
		AudioDevice{ID: 20, UID: "bt-a", Name: "A"},
		AudioDevice{ID: 30, UID: "bt-b", Name: "B"},
	)
	if err == nil {
		t.Fatal("expected create failure")
	}
	if ctrl.Live() {
		t.Fatal("expected controller not live after failed create")
	}
}
