package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}

	if cfg.Units.Count != 4 {
		t.Errorf("Expected 4 units, got %d", cfg.Units.Count)
	}
	if cfg.Timing.FloorsPerSecond != 1 {
		t.Errorf("Expected 1 floor per second, got %v", cfg.Timing.FloorsPerSecond)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lcc.yaml")
	content := `
units:
  count: 2
  floors: 10
timing:
  floorsPerSecond: 2.5
  loadTimeMs: 250
network:
  httpAddr: "127.0.0.1:9090"
auth:
  disabled: false
  algorithm: HS256
  secretKey: s3cret
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	t.Chdir(dir)
	t.Setenv("LCC_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Units.Count != 2 || cfg.Units.Floors != 10 {
		t.Errorf("Expected 2 units and 10 floors, got %+v", cfg.Units)
	}
	if cfg.Units.DoorWidthPx != 16 {
		t.Errorf("Expected default door width to survive, got %d", cfg.Units.DoorWidthPx)
	}
	if cfg.Timing.FloorsPerSecond != 2.5 {
		t.Errorf("Expected 2.5 floors per second, got %v", cfg.Timing.FloorsPerSecond)
	}
	if cfg.Network.HTTPAddr != "127.0.0.1:9090" {
		t.Errorf("Expected HTTP addr override, got %s", cfg.Network.HTTPAddr)
	}
	if cfg.Auth.Disabled || cfg.Auth.SecretKey != "s3cret" {
		t.Errorf("Expected auth enabled with secret, got %+v", cfg.Auth)
	}

	timing := cfg.Unit()
	if timing.LoadTime != 250*time.Millisecond {
		t.Errorf("Expected 250ms load time, got %v", timing.LoadTime)
	}
	if timing.DoorTime != time.Second {
		t.Errorf("Expected default door time 1s, got %v", timing.DoorTime)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("LCC_UNITS", "6")
	t.Setenv("LCC_FLOORS", "30")
	t.Setenv("LCC_FLOORS_PER_SECOND", "4")
	t.Setenv("LCC_LOG_LEVEL", "debug")
	t.Setenv("LCC_UDP_ADDR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Units.Count != 6 {
		t.Errorf("Expected 6 units, got %d", cfg.Units.Count)
	}
	if cfg.Units.Floors != 30 {
		t.Errorf("Expected 30 floors, got %d", cfg.Units.Floors)
	}
	if cfg.Timing.FloorsPerSecond != 4 {
		t.Errorf("Expected 4 floors per second, got %v", cfg.Timing.FloorsPerSecond)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected debug log level, got %s", cfg.Log.Level)
	}
	if cfg.Network.UDPAddr != "" {
		t.Errorf("Expected empty env var to disable UDP, got %q", cfg.Network.UDPAddr)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		file    string
		wantErr string
	}{
		{
			name:    "bad unit count",
			env:     map[string]string{"LCC_UNITS": "many"},
			wantErr: "LCC_UNITS",
		},
		{
			name:    "bad floors per second",
			env:     map[string]string{"LCC_FLOORS_PER_SECOND": "fast"},
			wantErr: "LCC_FLOORS_PER_SECOND",
		},
		{
			name:    "missing config file",
			env:     map[string]string{"LCC_CONFIG": "/nonexistent/lcc.yaml"},
			wantErr: "failed to load config",
		},
		{
			name:    "invalid yaml",
			file:    "units: [not, a, map",
			wantErr: "failed to load config",
		},
		{
			name:    "validation",
			env:     map[string]string{"LCC_UNITS": "0"},
			wantErr: "unit count must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			if tt.file != "" {
				path := filepath.Join(dir, "bad.yaml")
				if err := os.WriteFile(path, []byte(tt.file), 0o600); err != nil {
					t.Fatalf("Failed to write config: %v", err)
				}
				t.Setenv("LCC_CONFIG", path)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"too few floors", func(c *Config) { c.Units.Floors = 1 }, "floor count"},
		{"zero door width", func(c *Config) { c.Units.DoorWidthPx = 0 }, "door width"},
		{"zero speed", func(c *Config) { c.Timing.FloorsPerSecond = 0 }, "floors per second"},
		{"zero load time", func(c *Config) { c.Timing.LoadTimeMs = 0 }, "load time"},
		{"zero door time", func(c *Config) { c.Timing.DoorTimeMs = 0 }, "door time"},
		{"zero fault time", func(c *Config) { c.Timing.TransientFaultMs = 0 }, "transient fault"},
		{"zero heartbeat", func(c *Config) { c.Timing.HeartbeatSec = 0 }, "heartbeat"},
		{"zero buffer", func(c *Config) { c.Timing.EventBufferSize = 0 }, "event buffer"},
		{"bad algorithm", func(c *Config) { c.Auth.Disabled = false; c.Auth.Algorithm = "none" }, "invalid algorithm"},
		{"hs256 without secret", func(c *Config) { c.Auth.Disabled = false }, "secret key"},
		{"rs256 without key", func(c *Config) { c.Auth.Disabled = false; c.Auth.Algorithm = "RS256" }, "public key"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "invalid log level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}

	if err := Validate(nil); err == nil {
		t.Error("Expected error for nil config")
	}
}
