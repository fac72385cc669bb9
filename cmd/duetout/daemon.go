package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands.
//   - The daemon loop is the only place that executes side effects (OS audio
//     calls, preference writes).
//   - Effect results are turned into Events and fed back into the reducer.
//   - Broadcasts are forwarded to the websocket hub after the reduction that
//     produced them, so observers only ever see settled state.
//
// Every OS audio call therefore runs on this goroutine: aggregate
// create/destroy can never race against itself, and slow hardware queries
// never run on a caller's context.
// ============================================================================

// runDaemon is the main daemon loop that:
//   - Receives Events from the IPC server and websocket snapshot requests
//   - Optionally emits RefreshDevices on a poll cadence
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands and feeds observations back into the reducer
//
// Shutdown semantics:
//   - Exits when ctx is canceled or the events channel is closed
//   - Destroys any live aggregate device before returning, so no kernel-level
//     object outlives the process
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	fx Effects,
	state *DaemonState,
	broadcasts chan<- StateBroadcast,
	pollInterval time.Duration,
	logger *slog.Logger,
) {
	if state == nil {
		state = NewDaemonState()
	}

	var pollCh <-chan time.Time
	if pollInterval > 0 {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		pollCh = ticker.C
	}

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bs []StateBroadcast) {
		for _, b := range bs {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping state broadcast")
			}
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	// Execute all queued commands, reducing observations promptly so the
	// reducer can emit follow-up commands (aggregate created -> route).
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			runEffect(fx, cmd, logger, func(obs Event) {
				enqueueEvent(obs)
			})

			flushEvents()
		}
	}

	// teardown destroys a live aggregate on exit. Best-effort: a rejected
	// destroy at shutdown has no retry opportunity left.
	teardown := func() {
		if !fx.Aggregate.Live() {
			return
		}
		if err := fx.Aggregate.DestroyCombined(); err != nil {
			logger.Error("aggregate teardown on shutdown failed", "error", err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			teardown()
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				teardown()
				return
			}
			enqueueEvent(TimedEvent{Event: ev, At: time.Now()})
			flushEvents()
			flushCommands()

		case <-pollCh:
			enqueueEvent(TimedEvent{Event: RefreshDevices{}, At: time.Now()})
			flushEvents()
			flushCommands()
		}
	}
}
