package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/lift-control/lcc/internal/unit"
)

// DefaultFile is read first when present.
const DefaultFile = "config/default.yaml"

// Config represents the complete configuration for the lift control container
type Config struct {
	Units   UnitsConfig   `yaml:"units"`
	Timing  TimingConfig  `yaml:"timing"`
	Network NetworkConfig `yaml:"network"`
	Auth    AuthConfig    `yaml:"auth"`
	Log     LogConfig     `yaml:"log"`
	Audit   AuditConfig   `yaml:"audit"`
}

// UnitsConfig describes the building
type UnitsConfig struct {
	Count       int `yaml:"count"`
	Floors      int `yaml:"floors"`
	DoorWidthPx int `yaml:"doorWidthPx"`
}

// TimingConfig holds simulation and telemetry timing
type TimingConfig struct {
	FloorsPerSecond  float64 `yaml:"floorsPerSecond"`
	LoadTimeMs       int     `yaml:"loadTimeMs"`
	DoorTimeMs       int     `yaml:"doorTimeMs"`
	TransientFaultMs int     `yaml:"transientFaultMs"`
	HeartbeatSec     int     `yaml:"heartbeatSec"`
	EventBufferSize  int     `yaml:"eventBufferSize"`
}

// NetworkConfig holds listener addresses. An empty address disables the listener.
type NetworkConfig struct {
	HTTPAddr string `yaml:"httpAddr"`
	UDPAddr  string `yaml:"udpAddr"`
	QUICAddr string `yaml:"quicAddr"`
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	Disabled     bool   `yaml:"disabled"`
	Algorithm    string `yaml:"algorithm"`
	SecretKey    string `yaml:"secretKey"`
	PublicKeyPEM string `yaml:"publicKeyPem"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console or json
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	cfg := Default()

	// A missing default file is not an error.
	if err := loadFromFile(cfg, DefaultFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultFile, err)
	}

	if path := os.Getenv("LCC_CONFIG"); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Units: UnitsConfig{
			Count:       4,
			Floors:      22,
			DoorWidthPx: 16,
		},
		Timing: TimingConfig{
			FloorsPerSecond:  1,
			LoadTimeMs:       1000,
			DoorTimeMs:       1000,
			TransientFaultMs: 3000,
			HeartbeatSec:     15,
			EventBufferSize:  50,
		},
		Network: NetworkConfig{
			HTTPAddr: ":8080",
			UDPAddr:  ":5000",
			QUICAddr: "",
		},
		Auth: AuthConfig{
			Disabled:  true,
			Algorithm: "HS256",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Audit: AuditConfig{
			Dir:        "audit",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) error {
	strings := map[string]*string{
		"LCC_HTTP_ADDR":   &cfg.Network.HTTPAddr,
		"LCC_UDP_ADDR":    &cfg.Network.UDPAddr,
		"LCC_QUIC_ADDR":   &cfg.Network.QUICAddr,
		"LCC_LOG_LEVEL":   &cfg.Log.Level,
		"LCC_AUTH_SECRET": &cfg.Auth.SecretKey,
	}
	for key, target := range strings {
		if v, ok := os.LookupEnv(key); ok {
			*target = v
		}
	}

	ints := map[string]*int{
		"LCC_UNITS":  &cfg.Units.Count,
		"LCC_FLOORS": &cfg.Units.Floors,
	}
	for key, target := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*target = n
		}
	}

	if v := os.Getenv("LCC_FLOORS_PER_SECOND"); v != "" {
		fps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid LCC_FLOORS_PER_SECOND %q: %w", v, err)
		}
		cfg.Timing.FloorsPerSecond = fps
	}

	return nil
}

// Unit converts the timing section to controller timing.
func (c *Config) Unit() unit.Timing {
	return unit.Timing{
		FloorsPerSecond:    c.Timing.FloorsPerSecond,
		LoadTime:           time.Duration(c.Timing.LoadTimeMs) * time.Millisecond,
		DoorTime:           time.Duration(c.Timing.DoorTimeMs) * time.Millisecond,
		TransientFaultTime: time.Duration(c.Timing.TransientFaultMs) * time.Millisecond,
		DoorWidth:          c.Units.DoorWidthPx,
	}
}

// Heartbeat returns the telemetry heartbeat interval.
func (t TimingConfig) Heartbeat() time.Duration {
	return time.Duration(t.HeartbeatSec) * time.Second
}
