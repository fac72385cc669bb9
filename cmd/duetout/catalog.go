package main

import (
	"fmt"
	"log/slog"
)

// ============================================================================
// Device Catalog
// ============================================================================
// The catalog is the daemon's only view of hardware state. There is no push
// notification path: Refresh is called before every consequential action, and
// the previous device set is replaced wholesale each time.
// ============================================================================

type Catalog struct {
	audio  Backend
	logger *slog.Logger
}

func NewCatalog(audio Backend, logger *slog.Logger) *Catalog {
	return &Catalog{audio: audio, logger: logger}
}

// Refresh enumerates all output-capable devices in OS enumeration order.
//
// A device is kept only if it exposes at least one output channel and both its
// name and uid resolve. Per-device query failures skip that device rather than
// failing the refresh; devices come and go mid-enumeration and a refresh must
// survive that. The daemon's own aggregate device is excluded so it never
// appears as a selectable source.
func (c *Catalog) Refresh() ([]AudioDevice, error) {
	ids, err := c.audio.DeviceIDs()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	devices := make([]AudioDevice, 0, len(ids))
	for _, id := range ids {
		channels, err := c.audio.OutputChannels(id)
		if err != nil {
			c.logger.Debug("skipping device: output channels query failed", "device_id", uint32(id), "error", err)
			continue
		}
		if channels < 1 {
			continue
		}

		name, err := c.audio.DeviceName(id)
		if err != nil {
			c.logger.Debug("skipping device: name query failed", "device_id", uint32(id), "error", err)
			continue
		}

		uid, err := c.audio.DeviceUID(id)
		if err != nil {
			c.logger.Debug("skipping device: uid query failed", "device_id", uint32(id), "error", err)
			continue
		}
		if uid == aggregateDeviceUID {
			// Self-exclusion: our combined device is not a source.
			continue
		}

		transport := TransportOther
		if raw, err := c.audio.TransportType(id); err == nil {
			transport = transportKindFromRaw(raw)
		}

		devices = append(devices, AudioDevice{
			ID:        id,
			UID:       uid,
			Name:      name,
			Transport: transport,
		})
	}

	return devices, nil
}

// bluetoothDevices returns the subset offered as the setup pool.
func bluetoothDevices(devices []AudioDevice) []AudioDevice {
	var out []AudioDevice
	for _, d := range devices {
		if d.IsBluetooth() {
			out = append(out, d)
		}
	}
	return out
}

// findByUID resolves a persisted uid against a fresh catalog.
func findByUID(devices []AudioDevice, uid string) (AudioDevice, bool) {
	if uid == "" {
		return AudioDevice{}, false
	}
	for _, d := range devices {
		if d.UID == uid {
			return d, true
		}
	}
	return AudioDevice{}, false
}

// findBuiltIn returns the first built-in output device, if any.
func findBuiltIn(devices []AudioDevice) (AudioDevice, bool) {
	for _, d := range devices {
		if d.IsBuiltIn() {
			return d, true
		}
	}
	return AudioDevice{}, false
}
