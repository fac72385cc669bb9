package main

import (
	"fmt"
	"time"
)

// This file implements the reducer building blocks:
//
//   - Events: inputs to the reducer (user actions via IPC, observations from
//     executed OS calls)
//   - Commands: side effects requested by the reducer (catalog refreshes,
//     aggregate create/destroy, default-output routing, preference writes)
//   - Reduce(): computes next state + commands + broadcasts, without I/O
//
// The reducer must be pure: all audio-state mutation goes through DaemonState,
// and the daemon loop alone executes Commands and feeds observations back as
// Events. A mode switch is therefore a short event/command conversation:
//
//   SwitchMode -> CmdRefreshCatalog -> CatalogRefreshed -> resolve devices ->
//   CmdCreateAggregate / CmdDestroyAggregate + CmdSetDefaultOutput ->
//   DefaultOutputRouted -> finalize + BroadcastModeChanged
//
// Mode is only finalized (and broadcast) once the routing effect has run or
// the transition was abandoned, so observers never see a partial transition.

// ==============================
// Events
// ==============================

// Event is the input to the reducer: a user action or an observation from an
// executed command.
type Event interface {
	eventMarker()
}

// TimedEvent stamps an externally sourced event with its arrival time.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// ---- Actions (arrive via IPC or the poll ticker) ----

// SwitchMode requests a transition to the named output mode.
type SwitchMode struct {
	Mode string `json:"mode"`
}

func (SwitchMode) eventMarker() {}

// SaveSelection persists a new primary/secondary device choice. It does not
// itself switch mode.
type SaveSelection struct {
	PrimaryUID   string `json:"primary_uid"`
	SecondaryUID string `json:"secondary_uid"`
}

func (SaveSelection) eventMarker() {}

// RefreshDevices re-enumerates hardware without changing the mode.
type RefreshDevices struct{}

func (RefreshDevices) eventMarker() {}

// RequestStateSnapshot asks for a coherent state copy on the reply channel.
type RequestStateSnapshot struct {
	Reply chan StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// ---- Observations (emitted by the effects layer) ----

// CatalogRefreshed carries a fresh device enumeration.
type CatalogRefreshed struct {
	Devices []AudioDevice
	At      time.Time
}

func (CatalogRefreshed) eventMarker() {}

// CatalogRefreshFailed is emitted when enumeration itself fails (per-device
// failures are skipped inside the catalog and never reach the reducer).
type CatalogRefreshFailed struct {
	Err error
	At  time.Time
}

func (CatalogRefreshFailed) eventMarker() {}

// AggregateCreated is emitted after the OS accepted an aggregate create.
type AggregateCreated struct {
	Handle DeviceID
	At     time.Time
}

func (AggregateCreated) eventMarker() {}

// AggregateCreateFailed is emitted when the OS rejected the create. Live
// reflects the controller's state afterwards: the pre-create destroy may or
// may not have already torn down a previous aggregate.
type AggregateCreateFailed struct {
	Err  error
	Live bool
	At   time.Time
}

func (AggregateCreateFailed) eventMarker() {}

// AggregateDestroyed is emitted once the OS confirmed teardown.
type AggregateDestroyed struct {
	At time.Time
}

func (AggregateDestroyed) eventMarker() {}

// AggregateDestroyFailed means the handle is still recorded for retry.
type AggregateDestroyFailed struct {
	Err error
	At  time.Time
}

func (AggregateDestroyFailed) eventMarker() {}

// DefaultOutputRouted is emitted after the routing call ran. Routing is
// best-effort, so this arrives whether or not the OS accepted the new default.
type DefaultOutputRouted struct {
	Device DeviceID
	At     time.Time
}

func (DefaultOutputRouted) eventMarker() {}

// SelectionSaved confirms the preference write.
type SelectionSaved struct {
	PrimaryUID   string
	SecondaryUID string
	At           time.Time
}

func (SelectionSaved) eventMarker() {}

// SelectionSaveFailed reports a failed preference write.
type SelectionSaveFailed struct {
	Err error
	At  time.Time
}

func (SelectionSaveFailed) eventMarker() {}

// CommandFailed is the generic failure observation for commands without a
// dedicated failure event.
type CommandFailed struct {
	Command Command
	Err     error
	At      time.Time
}

func (CommandFailed) eventMarker() {}

// ==============================
// Broadcasts
// ==============================

// StateBroadcast is a state-change notification fanned out to websocket
// observers after the transition that produced it has fully settled.
type StateBroadcast interface {
	broadcastMarker()
}

type BroadcastModeChanged struct {
	Mode OutputMode
	At   time.Time
}

func (BroadcastModeChanged) broadcastMarker() {}

type BroadcastDevicesChanged struct {
	Devices []AudioDevice
	At      time.Time
}

func (BroadcastDevicesChanged) broadcastMarker() {}

type BroadcastSelectionChanged struct {
	PrimaryUID   string
	SecondaryUID string
	At           time.Time
}

func (BroadcastSelectionChanged) broadcastMarker() {}

// ==============================
// Reducer input/output
// ==============================

// ReduceResult is the output of Reduce(): next state plus the side effects
// and observer notifications it wants executed.
type ReduceResult struct {
	State      *DaemonState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// Reduce is the pure reducer.
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
//
// The daemon loop must execute Commands, translate results into Events, and
// feed those Events back into Reduce().
func Reduce(s *DaemonState, e Event) ReduceResult {
	if s == nil {
		s = NewDaemonState()
	}

	var cmds []Command
	var bcasts []StateBroadcast

	at := time.Now()
	if te, ok := e.(TimedEvent); ok {
		if !te.At.IsZero() {
			at = te.At
		}
		e = te.Event
	}

	switch ev := e.(type) {
	case SwitchMode:
		target, err := ParseOutputMode(ev.Mode)
		if err != nil {
			s.recordError(err.Error(), at)
			break
		}
		if s.Pending != nil {
			s.recordError(fmt.Sprintf("cannot switch to %s: transition to %s in progress", target, s.Pending.Target), at)
			break
		}
		// Hardware may have changed since the last observation; every
		// transition starts with a fresh catalog.
		s.Pending = &PendingTransition{Target: target, Began: at}
		cmds = append(cmds, CmdRefreshCatalog{})

	case RefreshDevices:
		cmds = append(cmds, CmdRefreshCatalog{})

	case SaveSelection:
		cmds = append(cmds, CmdSaveSelection{PrimaryUID: ev.PrimaryUID, SecondaryUID: ev.SecondaryUID})

	case RequestStateSnapshot:
		cmds = append(cmds, CmdPublishSnapshot{Snapshot: s.Snapshot(), Reply: ev.Reply})

	case CatalogRefreshed:
		s.Catalog = CatalogState{Devices: ev.Devices, Known: true, At: ev.At}
		bcasts = append(bcasts, BroadcastDevicesChanged{Devices: ev.Devices, At: ev.At})
		if s.Pending != nil {
			cmds = append(cmds, resolvePending(s, ev.At, &bcasts)...)
		}

	case CatalogRefreshFailed:
		if s.Pending != nil {
			s.abortPending(fmt.Sprintf("device enumeration failed: %v", ev.Err), ev.At)
		} else {
			s.recordError(fmt.Sprintf("device enumeration failed: %v", ev.Err), ev.At)
		}

	case AggregateCreated:
		s.Aggregate = AggregateState{Handle: ev.Handle, Live: true}
		if s.Pending != nil && s.Pending.Target == ModeCombined {
			cmds = append(cmds, CmdSetDefaultOutput{Device: ev.Handle, Name: aggregateDeviceName})
		}

	case AggregateCreateFailed:
		s.Aggregate.Live = ev.Live
		if !ev.Live {
			s.Aggregate.Handle = 0
		}
		if s.Pending != nil {
			s.abortPending(fmt.Sprintf("cannot combine: %v", ev.Err), ev.At)
		}

	case AggregateDestroyed:
		s.Aggregate = AggregateState{}

	case AggregateDestroyFailed:
		// Handle intentionally stays recorded so a later destroy can retry.
		// A pending single-device transition proceeds regardless; the stale
		// aggregate is redundant but not blocking.
		s.recordError(fmt.Sprintf("aggregate teardown failed: %v", ev.Err), ev.At)

	case DefaultOutputRouted:
		if s.Pending != nil {
			s.Mode = s.Pending.Target
			s.Pending = nil
			s.LastError = TransitionError{}
			bcasts = append(bcasts, BroadcastModeChanged{Mode: s.Mode, At: ev.At})
		}

	case SelectionSaved:
		s.Selection = SelectionState{PrimaryUID: ev.PrimaryUID, SecondaryUID: ev.SecondaryUID}
		bcasts = append(bcasts, BroadcastSelectionChanged{
			PrimaryUID:   ev.PrimaryUID,
			SecondaryUID: ev.SecondaryUID,
			At:           ev.At,
		})

	case SelectionSaveFailed:
		s.recordError(fmt.Sprintf("save selection failed: %v", ev.Err), ev.At)

	case CommandFailed:
		if s.Pending != nil {
			s.abortPending(fmt.Sprintf("command %s failed: %v", ev.Command, ev.Err), ev.At)
		} else {
			s.recordError(fmt.Sprintf("command %s failed: %v", ev.Command, ev.Err), ev.At)
		}

	default:
		// Unknown event type: no-op.
	}

	return ReduceResult{State: s, Commands: cmds, Broadcasts: bcasts}
}

// resolvePending matches the pending target against the fresh catalog and
// emits the commands for the transition, or aborts it with the mode (and any
// live aggregate's accounting) unchanged.
func resolvePending(s *DaemonState, at time.Time, bcasts *[]StateBroadcast) []Command {
	var cmds []Command
	target := s.Pending.Target

	switch target {
	case ModeCombined:
		if !s.HasValidConfiguration() {
			s.abortPending("cannot combine: no saved device selection", at)
			return nil
		}
		primary, okP := findByUID(s.Catalog.Devices, s.Selection.PrimaryUID)
		secondary, okS := findByUID(s.Catalog.Devices, s.Selection.SecondaryUID)
		if !okP {
			s.abortPending(fmt.Sprintf("cannot combine: device %s not connected", s.Selection.PrimaryUID), at)
			return nil
		}
		if !okS {
			s.abortPending(fmt.Sprintf("cannot combine: device %s not connected", s.Selection.SecondaryUID), at)
			return nil
		}
		cmds = append(cmds, CmdCreateAggregate{Primary: primary, Secondary: secondary})

	case ModePrimary, ModeSecondary:
		uid := s.Selection.PrimaryUID
		if target == ModeSecondary {
			uid = s.Selection.SecondaryUID
		}
		if uid == "" {
			s.abortPending(fmt.Sprintf("cannot route: no saved %s device", target), at)
			return nil
		}
		dev, ok := findByUID(s.Catalog.Devices, uid)
		if !ok {
			s.abortPending(fmt.Sprintf("cannot route: device %s not connected", uid), at)
			return nil
		}
		// A live aggregate and a direct route cannot sensibly coexist; tear
		// the aggregate down before routing.
		if s.Aggregate.Live {
			cmds = append(cmds, CmdDestroyAggregate{})
		}
		cmds = append(cmds, CmdSetDefaultOutput{Device: dev.ID, Name: dev.Name})

	case ModeBuiltIn:
		if s.Aggregate.Live {
			cmds = append(cmds, CmdDestroyAggregate{})
		}
		if builtIn, ok := findBuiltIn(s.Catalog.Devices); ok {
			cmds = append(cmds, CmdSetDefaultOutput{Device: builtIn.ID, Name: builtIn.Name})
		} else {
			// Nothing to route to; the mode still becomes built-in once the
			// teardown commands above have run.
			s.Mode = ModeBuiltIn
			s.Pending = nil
			s.LastError = TransitionError{}
			*bcasts = append(*bcasts, BroadcastModeChanged{Mode: ModeBuiltIn, At: at})
		}
	}

	return cmds
}
