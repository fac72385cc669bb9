package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadConfigFile_PartialOverridesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
devices:
  poll_interval_ms: 2000
logging:
  level: debug
`)

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}

	if cfg.Devices.PollIntervalMS != 2000 {
		t.Errorf("expected poll_interval_ms 2000, got %d", cfg.Devices.PollIntervalMS)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.IPC.SocketPath != defaultIPCSocketPath {
		t.Errorf("expected default socket path, got %s", cfg.IPC.SocketPath)
	}
	if cfg.StateWS.ListenAddr != defaultStateWSAddr {
		t.Errorf("expected default ws addr, got %s", cfg.StateWS.ListenAddr)
	}
}

func TestLoadConfigFile_RejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
devices:
  pol_interval_ms: 2000
`)

	if _, err := LoadConfigFile(path); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	socket := "/tmp/other.sock"
	level := "debug"
	poll := 500
	FlagOverrides{
		IPCSocketPath:  &socket,
		LogLevel:       &level,
		PollIntervalMS: &poll,
	}.Apply(&cfg)

	if cfg.IPC.SocketPath != socket {
		t.Errorf("expected socket override, got %s", cfg.IPC.SocketPath)
	}
	if cfg.Logging.Level != level {
		t.Errorf("expected log level override, got %s", cfg.Logging.Level)
	}
	if cfg.Devices.PollIntervalMS != poll {
		t.Errorf("expected poll override, got %d", cfg.Devices.PollIntervalMS)
	}
	// Nil pointers leave values alone.
	if cfg.Aggregate.Name != aggregateDeviceName {
		t.Errorf("expected untouched aggregate name, got %s", cfg.Aggregate.Name)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative poll", func(c *Config) { c.Devices.PollIntervalMS = -1 }, "poll_interval_ms"},
		{"too small poll", func(c *Config) { c.Devices.PollIntervalMS = 50 }, "poll_interval_ms"},
		{"empty aggregate name", func(c *Config) { c.Aggregate.Name = "" }, "aggregate.name"},
		{"empty socket", func(c *Config) { c.IPC.SocketPath = "" }, "socket_path"},
		{"bad ws path", func(c *Config) { c.StateWS.Path = "state" }, "state_ws.path"},
		{"empty log level", func(c *Config) { c.Logging.Level = "" }, "logging.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	if _, err := parseLogLevel("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	lvl, err := parseLogLevel("WARNING")
	if err != nil {
		t.Fatalf("parseLogLevel failed: %v", err)
	}
	if lvl != LogLevelWarn {
		t.Fatalf("expected warn, got %s", lvl)
	}
}
