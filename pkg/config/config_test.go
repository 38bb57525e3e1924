package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "server address required",
			mutate: func(c *Config) { c.Server.Address = "" },
		},
		{
			name:   "realtime address required",
			mutate: func(c *Config) { c.Realtime.Address = "" },
		},
		{
			name:   "ping interval must be > 0",
			mutate: func(c *Config) { c.Realtime.PingInterval = 0 },
		},
		{
			name:   "pong timeout must exceed ping interval",
			mutate: func(c *Config) { c.Realtime.PongTimeout = c.Realtime.PingInterval },
		},
		{
			name:   "typing ttl must be > 0",
			mutate: func(c *Config) { c.Rooms.TypingTTL = 0 },
		},
		{
			name:   "typing sweep interval must be > 0",
			mutate: func(c *Config) { c.Rooms.TypingSweepInterval = 0 },
		},
		{
			name:   "heartbeat timeout must be > 0",
			mutate: func(c *Config) { c.Livestream.HeartbeatTimeout = 0 },
		},
		{
			name:   "connecting timeout must be > 0",
			mutate: func(c *Config) { c.Livestream.ConnectingTimeout = 0 },
		},
		{
			name:   "media token ttl must be > 0",
			mutate: func(c *Config) { c.Media.TokenTTL = 0 },
		},
		{
			name: "enabled rate limiting needs ws rate",
			mutate: func(c *Config) {
				c.RateLimiting.Enabled = true
				c.RateLimiting.WebSocket.MessagesPerSecond = 0
			},
		},
		{
			name: "enabled redis needs an address",
			mutate: func(c *Config) {
				c.Redis.Enabled = true
				c.Redis.Address = ""
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  address: ":9999"
realtime:
  address: ":9998"
logging:
  level: "debug"
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9999" {
		t.Errorf("expected server address :9999, got %s", cfg.Server.Address)
	}
	if cfg.Realtime.Address != ":9998" {
		t.Errorf("expected realtime address :9998, got %s", cfg.Realtime.Address)
	}
	// Unspecified fields keep their defaults.
	if cfg.Rooms.TypingTTL != 5*time.Second {
		t.Errorf("expected default typing ttl, got %s", cfg.Rooms.TypingTTL)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HUDDLE_SERVER_ADDRESS", ":7777")
	t.Setenv("HUDDLE_LOG_LEVEL", "warn")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  address: \":9999\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":7777" {
		t.Errorf("expected env override to win, got %s", cfg.Server.Address)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
