package main

import (
	"fmt"
	"log/slog"
)

// ============================================================================
// Aggregate Device Controller
// ============================================================================
// Owns the lifecycle of the daemon's one aggregate device. An aggregate is a
// live kernel-level object: leaking one leaves a ghost output device on the
// system, so the controller tracks its handle until the OS confirms teardown.
//
// Only the daemon loop goroutine calls into this type.
// ============================================================================

type AggregateController struct {
	audio  Backend
	logger *slog.Logger
	name   string

	handle DeviceID
	live   bool
}

func NewAggregateController(audio Backend, name string, logger *slog.Logger) *AggregateController {
	if name == "" {
		name = aggregateDeviceName
	}
	return &AggregateController{audio: audio, name: name, logger: logger}
}

// Live reports whether a created aggregate handle is currently recorded.
func (a *AggregateController) Live() bool { return a.live }

// Handle returns the recorded aggregate device id. Only meaningful when
// Live() is true.
func (a *AggregateController) Handle() DeviceID { return a.handle }

// CreateCombined stacks primary and secondary into one aggregate output
// device, with primary as the clock source.
//
// Any existing aggregate is destroyed first. That also clears leftovers from a
// prior stale session: the OS rejects a create whose uid collides with a live
// device, so the pre-destroy keeps CreateCombined idempotent.
func (a *AggregateController) CreateCombined(primary, secondary AudioDevice) (DeviceID, error) {
	if err := a.DestroyCombined(); err != nil {
		return 0, fmt.Errorf("clear previous aggregate: %w", err)
	}

	spec := AggregateSpec{
		Name:             a.name,
		UID:              aggregateDeviceUID,
		SubDeviceUIDs:    []string{primary.UID, secondary.UID},
		MainSubDeviceUID: primary.UID,
		Stacked:          true,
	}

	handle, err := a.audio.CreateAggregate(spec)
	if err != nil {
		return 0, fmt.Errorf("create aggregate: %w", err)
	}

	a.handle = handle
	a.live = true
	a.logger.Info("aggregate device created",
		"handle", uint32(handle),
		"main", primary.Name,
		"secondary", secondary.Name)
	return handle, nil
}

// DestroyCombined tears down the recorded aggregate, if any. On a rejected
// destroy the handle stays recorded so a later attempt can retry; dropping it
// would leave a live OS object untracked.
func (a *AggregateController) DestroyCombined() error {
	if !a.live {
		return nil
	}

	if err := a.audio.DestroyAggregate(a.handle); err != nil {
		return fmt.Errorf("destroy aggregate %d: %w", uint32(a.handle), err)
	}

	a.logger.Info("aggregate device destroyed", "handle", uint32(a.handle))
	a.handle = 0
	a.live = false
	return nil
}
