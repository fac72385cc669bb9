package main

import (
	"log/slog"
	"time"
)

// Effects bundles the side-effecting collaborators that commands execute
// against. All of them are only ever touched from the daemon loop goroutine,
// which serializes every OS audio call.
type Effects struct {
	Catalog   *Catalog
	Aggregate *AggregateController
	Router    *OutputRouter
	Prefs     *PrefStore
}

// runEffect executes a single reducer-emitted Command and emits observation
// Events via onEvent.
//
// Design rules:
// - This function is allowed to perform I/O.
// - It must never call Reduce() directly; it only emits Events to be reduced
//   by the daemon loop.
// - The daemon loop is responsible for sequencing:
//   Reduce -> Commands -> runEffect -> Events -> Reduce.
func runEffect(fx Effects, cmd Command, logger *slog.Logger, onEvent func(Event)) {
	if onEvent == nil {
		return
	}

	now := time.Now()

	switch c := cmd.(type) {
	case CmdRefreshCatalog:
		devices, err := fx.Catalog.Refresh()
		if err != nil {
			logger.Error("catalog refresh failed", "error", err)
			onEvent(CatalogRefreshFailed{Err: err, At: now})
			return
		}
		logger.Debug("catalog refreshed", "devices", len(devices))
		onEvent(CatalogRefreshed{Devices: devices, At: now})

	case CmdCreateAggregate:
		handle, err := fx.Aggregate.CreateCombined(c.Primary, c.Secondary)
		if err != nil {
			logger.Error("aggregate create failed",
				"primary", c.Primary.Name,
				"secondary", c.Secondary.Name,
				"error", err)
			onEvent(AggregateCreateFailed{Err: err, Live: fx.Aggregate.Live(), At: now})
			return
		}
		onEvent(AggregateCreated{Handle: handle, At: now})

	case CmdDestroyAggregate:
		if err := fx.Aggregate.DestroyCombined(); err != nil {
			logger.Error("aggregate destroy failed", "error", err)
			onEvent(AggregateDestroyFailed{Err: err, At: now})
			return
		}
		onEvent(AggregateDestroyed{At: now})

	case CmdSetDefaultOutput:
		// Best-effort by design: the router logs a rejected call and the
		// transition still settles on the requested mode.
		fx.Router.SetDefaultOutput(c.Device, c.Name)
		onEvent(DefaultOutputRouted{Device: c.Device, At: now})

	case CmdSaveSelection:
		if err := fx.Prefs.Save(Selection{PrimaryUID: c.PrimaryUID, SecondaryUID: c.SecondaryUID}); err != nil {
			logger.Error("save selection failed", "error", err)
			onEvent(SelectionSaveFailed{Err: err, At: now})
			return
		}
		logger.Info("selection saved", "primary_uid", c.PrimaryUID, "secondary_uid", c.SecondaryUID)
		onEvent(SelectionSaved{PrimaryUID: c.PrimaryUID, SecondaryUID: c.SecondaryUID, At: now})

	case CmdPublishSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		// Never block the daemon loop on a requester.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	default:
		logger.Warn("unknown command type", "command", cmd.String())
		onEvent(CommandFailed{Command: cmd, Err: errUnknownCommand{cmd: cmd}, At: now})
	}
}

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
