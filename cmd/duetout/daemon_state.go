package main

import (
	"fmt"
	"time"
)

// ============================================================================
// Daemon-owned state
// ============================================================================
// DaemonState is owned by the daemon loop goroutine and mutated only through
// Reduce. Other goroutines (IPC, websocket clients) observe it via snapshots
// requested through the event loop, never directly.
// ============================================================================

// OutputMode is the active routing target. Exactly one mode is active at any
// time; the machine starts in ModeBuiltIn and lives for the process lifetime.
type OutputMode string

const (
	ModeCombined  OutputMode = "combined"
	ModePrimary   OutputMode = "primary"
	ModeSecondary OutputMode = "secondary"
	ModeBuiltIn   OutputMode = "builtin"
)

func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(s) {
	case ModeCombined, ModePrimary, ModeSecondary, ModeBuiltIn:
		return OutputMode(s), nil
	default:
		return "", fmt.Errorf("unknown output mode %q", s)
	}
}

// CatalogState is the last observed device set. Devices are replaced
// wholesale on every refresh; there is no incremental diffing.
type CatalogState struct {
	Devices []AudioDevice
	Known   bool
	At      time.Time
}

// SelectionState mirrors the persisted device selection: the two uids the
// user chose during setup. Uids are the only identifiers safe to persist.
type SelectionState struct {
	PrimaryUID   string
	SecondaryUID string
}

// AggregateState mirrors what the controller last reported about the
// aggregate device, so snapshots can expose it without touching the
// controller from other goroutines.
type AggregateState struct {
	Handle DeviceID
	Live   bool
}

// PendingTransition tracks an in-flight switchTo. While one is pending, new
// mode-switch requests are rejected; the daemon loop's sequencing guarantees
// at most one set of OS calls is in motion.
type PendingTransition struct {
	Target OutputMode
	Began  time.Time
}

// TransitionError is the last recorded transition failure, kept for
// snapshots. A successful transition clears it.
type TransitionError struct {
	Reason string
	At     time.Time
}

type DaemonState struct {
	Catalog   CatalogState
	Selection SelectionState
	Mode      OutputMode
	Aggregate AggregateState
	Pending   *PendingTransition
	LastError TransitionError
}

func NewDaemonState() *DaemonState {
	return &DaemonState{Mode: ModeBuiltIn}
}

// HasValidConfiguration holds iff both selection uids are non-empty.
func (s *DaemonState) HasValidConfiguration() bool {
	return s.Selection.PrimaryUID != "" && s.Selection.SecondaryUID != ""
}

// BothDevicesConnected holds iff both selected devices resolve in the
// current catalog.
func (s *DaemonState) BothDevicesConnected() bool {
	if !s.HasValidConfiguration() {
		return false
	}
	_, okP := findByUID(s.Catalog.Devices, s.Selection.PrimaryUID)
	_, okS := findByUID(s.Catalog.Devices, s.Selection.SecondaryUID)
	return okP && okS
}

// recordError notes a non-fatal condition for snapshot consumers.
func (s *DaemonState) recordError(reason string, at time.Time) {
	s.LastError = TransitionError{Reason: reason, At: at}
}

// abortPending abandons the in-flight transition, leaving Mode untouched.
// Every failure path returns the machine to the previously valid state.
func (s *DaemonState) abortPending(reason string, at time.Time) {
	s.Pending = nil
	s.recordError(reason, at)
}

// ============================================================================
// Snapshots
// ============================================================================

// deviceInfo is the externally visible shape of a catalog entry.
type deviceInfo struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Transport string `json:"transport"`
}

// StateSnapshot is a coherent copy of everything a presentation layer needs:
// active mode, device pool, bluetooth setup pool, and configuration health.
type StateSnapshot struct {
	Mode         OutputMode   `json:"mode"`
	SwitchingTo  OutputMode   `json:"switching_to,omitempty"`
	Devices      []deviceInfo `json:"devices"`
	Bluetooth    []deviceInfo `json:"bluetooth_devices"`
	PrimaryUID   string       `json:"primary_uid"`
	SecondaryUID string       `json:"secondary_uid"`

	HasValidConfiguration bool `json:"has_valid_configuration"`
	BothDevicesConnected  bool `json:"both_devices_connected"`
	AggregateLive         bool `json:"aggregate_live"`

	LastError   string    `json:"last_error,omitempty"`
	LastErrorAt time.Time `json:"last_error_at,omitzero"`
	CatalogAt   time.Time `json:"catalog_at,omitzero"`
}

func deviceInfos(devices []AudioDevice) []deviceInfo {
	out := make([]deviceInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceInfo{
			UID:       d.UID,
			Name:      d.Name,
			Transport: d.Transport.String(),
		})
	}
	return out
}

// Snapshot builds a copy safe to hand to other goroutines.
func (s *DaemonState) Snapshot() StateSnapshot {
	snap := StateSnapshot{
		Mode:                  s.Mode,
		Devices:               deviceInfos(s.Catalog.Devices),
		Bluetooth:             deviceInfos(bluetoothDevices(s.Catalog.Devices)),
		PrimaryUID:            s.Selection.PrimaryUID,
		SecondaryUID:          s.Selection.SecondaryUID,
		HasValidConfiguration: s.HasValidConfiguration(),
		BothDevicesConnected:  s.BothDevicesConnected(),
		AggregateLive:         s.Aggregate.Live,
		LastError:             s.LastError.Reason,
		LastErrorAt:           s.LastError.At,
		CatalogAt:             s.Catalog.At,
	}
	if s.Pending != nil {
		snap.SwitchingTo = s.Pending.Target
	}
	return snap
}
