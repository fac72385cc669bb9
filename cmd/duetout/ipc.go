package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server allows external clients to send JSON events to the daemon
// via a Unix domain socket. This enables:
//   - Mode switching from the command line (duetout-ctl)
//   - The setup wizard writing a device selection
//   - Menu/status UI querying the current state
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "event_name", "data": {...}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
//   - For "get_state" the ok response additionally carries a "state" object.
// ============================================================================

// ipcSnapshotTimeout bounds how long a get_state request waits for the daemon
// loop to produce a snapshot.
const ipcSnapshotTimeout = 2 * time.Second

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string         `json:"status"`          // "ok" or "error"
	Error  string         `json:"error,omitempty"` // error message if status == "error"
	State  *StateSnapshot `json:"state,omitempty"` // populated for get_state
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0o600); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}

			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(ctx, conn, events, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	respond := func(resp IPCResponse) {
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		var env EventEnvelope
		if err := json.Unmarshal([]byte(line), &env); err != nil {
			respond(IPCResponse{Status: "error", Error: fmt.Sprintf("parse envelope: %v", err)})
			continue
		}

		// get_state needs a snapshot round-trip through the daemon loop, so
		// it is handled here instead of in UnmarshalEvent.
		if env.Type == "get_state" {
			snap, err := requestSnapshot(ctx, events)
			if err != nil {
				respond(IPCResponse{Status: "error", Error: err.Error()})
				continue
			}
			respond(IPCResponse{Status: "ok", State: &snap})
			continue
		}

		ev, err := UnmarshalEvent([]byte(line))
		if err != nil {
			respond(IPCResponse{Status: "error", Error: fmt.Sprintf("parse event: %v", err)})
			continue
		}

		select {
		case events <- ev:
			respond(IPCResponse{Status: "ok"})
		default:
			// Event channel is full (should rarely happen with buffer)
			respond(IPCResponse{Status: "error", Error: "event queue full"})
		}
	}

	logger.Debug("IPC connection closed")
}

// requestSnapshot asks the daemon loop for a coherent state copy.
func requestSnapshot(ctx context.Context, events chan<- Event) (StateSnapshot, error) {
	reply := make(chan StateSnapshot, 1)

	waitCtx, cancel := context.WithTimeout(ctx, ipcSnapshotTimeout)
	defer cancel()

	select {
	case events <- RequestStateSnapshot{Reply: reply}:
	case <-waitCtx.Done():
		return StateSnapshot{}, fmt.Errorf("snapshot request: %w", waitCtx.Err())
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-waitCtx.Done():
		return StateSnapshot{}, fmt.Errorf("snapshot reply: %w", waitCtx.Err())
	}
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================
// These functions are used by duetout-ctl and tests to talk to the daemon.
// ============================================================================

// SendIPCEvent sends an event to the daemon via IPC and returns the response
func SendIPCEvent(socketPath string, ev Event) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	decoder := json.NewDecoder(conn)
	var resp IPCResponse
	if err := decoder.Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}

	return nil
}

// FetchIPCState requests a state snapshot from a running daemon.
func FetchIPCState(socketPath string) (StateSnapshot, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return StateSnapshot{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	if _, err := fmt.Fprintf(conn, "%s\n", `{"type":"get_state"}`); err != nil {
		return StateSnapshot{}, fmt.Errorf("send request: %w", err)
	}

	decoder := json.NewDecoder(conn)
	var resp IPCResponse
	if err := decoder.Decode(&resp); err != nil {
		return StateSnapshot{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return StateSnapshot{}, fmt.Errorf("ipc error: %s", resp.Error)
	}
	if resp.State == nil {
		return StateSnapshot{}, errors.New("ipc response missing state")
	}
	return *resp.State, nil
}
