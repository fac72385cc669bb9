package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

// ============================================================================
// duetout-ctl - Command-line IPC Client
// ============================================================================
// This tool sends commands to the duetout daemon via IPC.
//
// Usage:
//   duetout-ctl combined
//   duetout-ctl primary
//   duetout-ctl secondary
//   duetout-ctl builtin
//   duetout-ctl save <primary-uid> <secondary-uid>
//   duetout-ctl refresh
//   duetout-ctl status
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/duetout.sock)
// ============================================================================

// Event types (duplicated from main package for standalone binary)
type Event interface{}

type SwitchMode struct {
	Mode string `json:"mode"`
}

type SaveSelection struct {
	PrimaryUID   string `json:"primary_uid"`
	SecondaryUID string `json:"secondary_uid"`
}

type RefreshDevices struct{}

type GetState struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	State  json.RawMessage `json:"state,omitempty"`
}

func main() {
	socketPath := "/tmp/duetout.sock"

	// Parse arguments
	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Check for -socket flag
	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Parse command
	var event Event

	switch args[0] {
	case "combined", "both":
		event = SwitchMode{Mode: "combined"}

	case "primary":
		event = SwitchMode{Mode: "primary"}

	case "secondary":
		event = SwitchMode{Mode: "secondary"}

	case "builtin", "built-in":
		event = SwitchMode{Mode: "builtin"}

	case "save":
		if len(args) < 3 {
			fmt.Fprintf(os.Stderr, "error: save requires a primary and a secondary device UID\n")
			os.Exit(1)
		}
		event = SaveSelection{PrimaryUID: args[1], SecondaryUID: args[2]}

	case "refresh":
		event = RefreshDevices{}

	case "status", "state":
		event = GetState{}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	// Send event
	resp, err := sendEvent(socketPath, event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if len(resp.State) > 0 {
		var pretty map[string]any
		if err := json.Unmarshal(resp.State, &pretty); err == nil {
			out, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(out))
			return
		}
		fmt.Println(string(resp.State))
		return
	}

	fmt.Println("ok")
}

func sendEvent(socketPath string, event Event) (IPCResponse, error) {
	// Connect to socket
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	// Marshal event
	data, err := marshalEvent(event)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal event: %w", err)
	}

	// Send event (line-delimited JSON)
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send event: %w", err)
	}

	// Read response
	var response IPCResponse
	decoder := json.NewDecoder(conn)
	if err := decoder.Decode(&response); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	// Check response status
	if response.Status == "error" {
		return IPCResponse{}, fmt.Errorf("daemon error: %s", response.Error)
	}

	return response, nil
}

func marshalEvent(event Event) ([]byte, error) {
	var env EventEnvelope

	switch e := event.(type) {
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

	case GetState:
		env.Type = "get_state"

	default:
		return nil, fmt.Errorf("unknown event type: %T", event)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `duetout-ctl - Control the duetout daemon via IPC

Usage:
  duetout-ctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/duetout.sock)

Commands:
  combined, both              Route audio to both devices (aggregate output)
  primary                     Route audio to the primary device alone
  secondary                   Route audio to the secondary device alone
  builtin, built-in           Route audio to the built-in speakers
  save <primary> <secondary>  Save a device selection (UIDs)
  refresh                     Re-enumerate audio devices now
  status, state               Print the daemon's current state as JSON
  help, -h, --help            Show this help message

Examples:
  duetout-ctl combined
  duetout-ctl save AirPods-UID-1234 HomePod-UID-5678
  duetout-ctl -socket /var/run/duetout.sock builtin
`)
}
