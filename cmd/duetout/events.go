package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps the externally sourced events (the IPC action surface)
// for JSON serialization. Since Go doesn't have union types, we use a type
// discriminator. Observation events never cross a process boundary and are
// deliberately not representable here.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "switch_mode":
		var a SwitchMode
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SwitchMode: %w", err)
		}
		return a, nil

	case "save_selection":
		var a SaveSelection
		if err := json.Unmarshal(env.Data, &a); err != nil {
			return nil, fmt.Errorf("unmarshal SaveSelection: %w", err)
		}
		return a, nil

	case "refresh_devices":
		return RefreshDevices{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case SwitchMode:
		env.Type = "switch_mode"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SwitchMode: %w", err)
		}
		env.Data = data

	case SaveSelection:
		env.Type = "save_selection"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal SaveSelection: %w", err)
		}
		env.Data = data

	case RefreshDevices:
		env.Type = "refresh_devices"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
