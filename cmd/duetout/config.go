package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the duetout daemon.
//
// This is intentionally user-facing and stable-ish. Keep defaults and validation
// centralized so the rest of the code can assume a well-formed config.
//
// Design goals:
// - Make config file the primary configuration surface.
// - Keep flags for small overrides and for environments where a file is awkward.
type Config struct {
	// Device catalog configuration
	Devices DevicesConfig `yaml:"devices"`

	// Aggregate (combined output) device configuration
	Aggregate AggregateConfig `yaml:"aggregate"`

	// IPC configuration (used by duetout-ctl and the setup wizard)
	IPC IPCConfig `yaml:"ipc"`

	// State WebSocket server configuration
	StateWS StateWSConfig `yaml:"state_ws"`

	// Preference store configuration
	Prefs PrefsConfig `yaml:"prefs"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type DevicesConfig struct {
	// PollIntervalMS re-enumerates the device catalog on a timer when > 0.
	// 0 disables polling; the catalog then refreshes only on explicit
	// requests and around mode transitions.
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

type AggregateConfig struct {
	// Name is the human-visible name of the combined output device.
	Name string `yaml:"name"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type StateWSConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	Path       string `yaml:"path"`
}

type PrefsConfig struct {
	// File overrides the default XDG state-dir location of the saved
	// device selection. Leave empty for the default.
	File string `yaml:"file,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go defaults and current CLI defaults.
func DefaultConfig() Config {
	return Config{
		Devices: DevicesConfig{
			PollIntervalMS: defaultPollIntervalMS,
		},
		Aggregate: AggregateConfig{
			Name: aggregateDeviceName,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		StateWS: StateWSConfig{
			ListenAddr: defaultStateWSAddr,
			Path:       defaultStateWSPath,
		},
		Prefs: PrefsConfig{
			File: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file.
//
// Notes:
//   - The file must be valid YAML.
//   - Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	if err := dec.Decode(&struct{}{}); err == nil {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// This is designed so you can keep a config file as the primary configuration
// source, but still do ad-hoc overrides for debugging/launchd overrides.
//
// Flags should pass pointers; each override is only applied if the pointer is
// non-nil. main.go decides what flags exist.
type FlagOverrides struct {
	PollIntervalMS *int
	AggregateName  *string

	IPCSocketPath *string

	StateWSListenAddr *string
	StateWSPath       *string

	PrefsFile *string

	LogLevel *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.PollIntervalMS != nil {
		cfg.Devices.PollIntervalMS = *o.PollIntervalMS
	}
	if o.AggregateName != nil {
		cfg.Aggregate.Name = *o.AggregateName
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.StateWSListenAddr != nil {
		cfg.StateWS.ListenAddr = *o.StateWSListenAddr
	}
	if o.StateWSPath != nil {
		cfg.StateWS.Path = *o.StateWSPath
	}

	if o.PrefsFile != nil {
		cfg.Prefs.File = *o.PrefsFile
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Devices
	if c.Devices.PollIntervalMS < 0 {
		return errors.New("devices.poll_interval_ms must be >= 0")
	}
	if c.Devices.PollIntervalMS > 0 && c.Devices.PollIntervalMS < 100 {
		return errors.New("devices.poll_interval_ms must be 0 or >= 100")
	}

	// Aggregate
	if c.Aggregate.Name == "" {
		return errors.New("aggregate.name must not be empty")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// State WS
	if c.StateWS.ListenAddr == "" {
		return errors.New("state_ws.listen_addr must not be empty")
	}
	if c.StateWS.Path == "" || c.StateWS.Path[0] != '/' {
		return errors.New("state_ws.path must start with '/'")
	}

	// Logging
	if c.Logging.Level == "" {
		return errors.New("logging.level must not be empty")
	}

	return nil
}

// PollInterval returns the catalog poll interval as a duration. Zero means
// polling is disabled.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Devices.PollIntervalMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
// This is handy for config values like prefs.file.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
