package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// ws_listen - debug listener for the duetout state WebSocket.
//
// Connects to the daemon's state endpoint, prints the state_init snapshot and
// every subsequent state event as it arrives. Handy for watching mode
// transitions and device hotplug without a real client.

func main() {
	var (
		wsURL = flag.String("ws", "ws://127.0.0.1:3600/state", "duetout state websocket URL")
	)
	flag.Parse()

	// Parse websocket URL
	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	// Handle shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	// Connect to websocket
	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// Set up ping/pong handlers for connection health
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// The daemon pings us already; we ping from our side too so a dead
	// daemon is detected promptly.
	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	go func() {
		for range pingTicker.C {
			writeMu.Lock()
			err := conn.WriteMessage(websocket.PingMessage, nil)
			writeMu.Unlock()
			if err != nil {
				log.Printf("ping failed: %v", err)
				return
			}
		}
	}()

	// Message reading loop
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}

			switch messageType {
			case websocket.TextMessage:
				handleTextMessage(message)
			case websocket.BinaryMessage:
				fmt.Printf("[BINARY] %d bytes\n", len(message))
			case websocket.CloseMessage:
				fmt.Printf("[CLOSE]\n")
				return
			}
		}
	}()

	// Wait for shutdown signal or connection close
	select {
	case <-sigc:
		log.Printf("shutting down...")
		// Clean close
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// stateEnvelope mirrors the daemon's WS wire format.
type stateEnvelope struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// handleTextMessage processes incoming text messages
func handleTextMessage(message []byte) {
	var env stateEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		fmt.Printf("[TEXT] %s\n", string(message))
		return
	}

	switch env.Type {
	case "mode_changed":
		var data struct {
			Mode string `json:"mode"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			fmt.Printf("[MODE] %s\n", data.Mode)
			return
		}

	case "devices_changed":
		var data struct {
			Devices []struct {
				UID       string `json:"uid"`
				Name      string `json:"name"`
				Transport string `json:"transport"`
			} `json:"devices"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			fmt.Printf("[DEVICES] %d output device(s)\n", len(data.Devices))
			for _, dev := range data.Devices {
				fmt.Printf("  %-10s %s (%s)\n", dev.Transport, dev.Name, dev.UID)
			}
			return
		}

	case "selection_changed":
		var data struct {
			PrimaryUID   string `json:"primary_uid"`
			SecondaryUID string `json:"secondary_uid"`
		}
		if err := json.Unmarshal(env.Data, &data); err == nil {
			fmt.Printf("[SELECTION] primary=%s secondary=%s\n", data.PrimaryUID, data.SecondaryUID)
			return
		}
	}

	// Pretty print everything else (state_init, unknown types)
	var pretty map[string]any
	if err := json.Unmarshal(message, &pretty); err == nil {
		prettyJSON, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Printf("[%s]\n%s\n\n", env.Type, string(prettyJSON))
		return
	}
	fmt.Printf("[TEXT] %s\n", string(message))
}
