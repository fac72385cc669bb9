package main

import "log/slog"

// OutputRouter points the system default output at a device.
//
// Routing is best-effort: the OS call's failure is logged but not surfaced to
// the caller. A handle from a stale refresh may reference a device that has
// since disconnected; the OS rejects that and the previous default stays in
// place, which is an acceptable outcome for a route switch.
type OutputRouter struct {
	audio  Backend
	logger *slog.Logger
}

func NewOutputRouter(audio Backend, logger *slog.Logger) *OutputRouter {
	return &OutputRouter{audio: audio, logger: logger}
}

func (r *OutputRouter) SetDefaultOutput(id DeviceID, name string) {
	if err := r.audio.SetDefaultOutput(id); err != nil {
		r.logger.Warn("set default output failed", "device_id", uint32(id), "device", name, "error", err)
		return
	}
	r.logger.Info("default output set", "device_id", uint32(id), "device", name)
}
