package config

import (
	"fmt"
)

var (
	validAlgorithms = []string{"HS256", "RS256"}
	validLogLevels  = []string{"trace", "debug", "info", "warn", "error", "disabled"}
	validLogFormats = []string{"console", "json"}
)

// Validate checks the configuration for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateUnits(&cfg.Units); err != nil {
		return fmt.Errorf("units validation failed: %w", err)
	}

	if err := validateTiming(&cfg.Timing); err != nil {
		return fmt.Errorf("timing validation failed: %w", err)
	}

	if err := validateAuth(&cfg.Auth); err != nil {
		return fmt.Errorf("auth validation failed: %w", err)
	}

	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log validation failed: %w", err)
	}

	return nil
}

func validateUnits(u *UnitsConfig) error {
	if u.Count <= 0 {
		return fmt.Errorf("unit count must be positive, got %d", u.Count)
	}
	if u.Floors < 2 {
		return fmt.Errorf("floor count must be at least 2, got %d", u.Floors)
	}
	if u.DoorWidthPx <= 0 {
		return fmt.Errorf("door width must be positive, got %d", u.DoorWidthPx)
	}
	return nil
}

func validateTiming(t *TimingConfig) error {
	if t.FloorsPerSecond <= 0 {
		return fmt.Errorf("floors per second must be positive, got %v", t.FloorsPerSecond)
	}
	if t.LoadTimeMs <= 0 {
		return fmt.Errorf("load time must be positive, got %dms", t.LoadTimeMs)
	}
	if t.DoorTimeMs <= 0 {
		return fmt.Errorf("door time must be positive, got %dms", t.DoorTimeMs)
	}
	if t.TransientFaultMs <= 0 {
		return fmt.Errorf("transient fault time must be positive, got %dms", t.TransientFaultMs)
	}
	if t.HeartbeatSec <= 0 {
		return fmt.Errorf("heartbeat interval must be positive, got %ds", t.HeartbeatSec)
	}
	if t.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", t.EventBufferSize)
	}
	return nil
}

func validateAuth(a *AuthConfig) error {
	if a.Disabled {
		return nil
	}
	if !contains(validAlgorithms, a.Algorithm) {
		return fmt.Errorf("invalid algorithm %s, must be one of: %v", a.Algorithm, validAlgorithms)
	}
	if a.Algorithm == "HS256" && a.SecretKey == "" {
		return fmt.Errorf("HS256 requires a secret key")
	}
	if a.Algorithm == "RS256" && a.PublicKeyPEM == "" {
		return fmt.Errorf("RS256 requires a public key")
	}
	return nil
}

func validateLog(l *LogConfig) error {
	if !contains(validLogLevels, l.Level) {
		return fmt.Errorf("invalid log level %s, must be one of: %v", l.Level, validLogLevels)
	}
	if !contains(validLogFormats, l.Format) {
		return fmt.Errorf("invalid log format %s, must be one of: %v", l.Format, validLogFormats)
	}
	return nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
