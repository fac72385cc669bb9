package main

import "errors"

// ============================================================================
// Audio backend capability interface
// ============================================================================
// The daemon talks to the OS audio subsystem exclusively through Backend.
// On macOS the implementation is the CoreAudio HAL (coreaudio_darwin.go);
// tests substitute a mock. Everything above this interface is portable.
// ============================================================================

// DeviceID is the OS-assigned numeric handle of an audio object.
// It is only valid for the current process session; unplugging and replugging
// a device yields a new id. Persist UIDs, never DeviceIDs.
type DeviceID uint32

// TransportKind classifies how a device is connected.
type TransportKind int

const (
	TransportOther TransportKind = iota
	TransportBuiltIn
	TransportBluetooth
	TransportBluetoothLE
)

func (t TransportKind) String() string {
	switch t {
	case TransportBuiltIn:
		return "built-in"
	case TransportBluetooth:
		return "bluetooth"
	case TransportBluetoothLE:
		return "bluetooth-le"
	default:
		return "other"
	}
}

// Raw CoreAudio transport type codes ('bltn', 'blue', 'blea' as big-endian
// four-char codes). The backend reports these; transportKindFromRaw maps them.
const (
	rawTransportBuiltIn     = 0x626c746e // 'bltn'
	rawTransportBluetooth   = 0x626c7565 // 'blue'
	rawTransportBluetoothLE = 0x626c6561 // 'blea'
)

func transportKindFromRaw(raw uint32) TransportKind {
	switch raw {
	case rawTransportBuiltIn:
		return TransportBuiltIn
	case rawTransportBluetooth:
		return TransportBluetooth
	case rawTransportBluetoothLE:
		return TransportBluetoothLE
	default:
		return TransportOther
	}
}

// AudioDevice is an immutable snapshot of one output-capable device, built
// fresh on every catalog refresh and replaced wholesale on the next one.
// Identity for selection purposes is by UID (restart-stable); ID is the
// session-scoped handle used for OS calls.
type AudioDevice struct {
	ID        DeviceID      `json:"id"`
	UID       string        `json:"uid"`
	Name      string        `json:"name"`
	Transport TransportKind `json:"-"`
}

func (d AudioDevice) IsBluetooth() bool {
	return d.Transport == TransportBluetooth || d.Transport == TransportBluetoothLE
}

func (d AudioDevice) IsBuiltIn() bool {
	return d.Transport == TransportBuiltIn
}

// AggregateSpec describes the aggregate device to create. This replaces the
// original string-keyed configuration dictionary with fixed fields.
type AggregateSpec struct {
	// Name is the human-visible device name.
	Name string
	// UID is the stable identity of the aggregate. The daemon always uses the
	// same constant so its own aggregate is recognizable across runs.
	UID string
	// SubDeviceUIDs lists the physical devices to stack, in order.
	SubDeviceUIDs []string
	// MainSubDeviceUID names the clock-source sub-device. A hardware ensemble
	// has one master clock; every other sub-device is resampled to it.
	MainSubDeviceUID string
	// Stacked concatenates sub-device channels so each device plays the full
	// stream, instead of splitting channels across devices.
	Stacked bool
}

// Backend is the OS audio subsystem capability the daemon depends on.
//
// All calls may block on hardware queries and must only be issued from the
// daemon loop goroutine. Per-device getters return an error for stale or
// misbehaving devices; the catalog treats those as "skip this device".
type Backend interface {
	// DeviceIDs returns all audio device object ids in OS enumeration order.
	DeviceIDs() ([]DeviceID, error)

	// OutputChannels reports the device's total output channel count.
	OutputChannels(id DeviceID) (int, error)

	// DeviceName resolves the device's human-readable name.
	DeviceName(id DeviceID) (string, error)

	// DeviceUID resolves the device's restart-stable identifier.
	DeviceUID(id DeviceID) (string, error)

	// TransportType returns the raw transport type code.
	TransportType(id DeviceID) (uint32, error)

	// CreateAggregate asks the OS to synthesize an aggregate device.
	CreateAggregate(spec AggregateSpec) (DeviceID, error)

	// DestroyAggregate tears down a previously created aggregate device.
	DestroyAggregate(id DeviceID) error

	// SetDefaultOutput makes the given device the system default output sink.
	SetDefaultOutput(id DeviceID) error
}

// errBackendUnavailable is returned by the stub backend on platforms without
// a CoreAudio HAL.
var errBackendUnavailable = errors.New("audio backend not available on this platform")
