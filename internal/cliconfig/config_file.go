package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config with durations as strings for TOML.
type FileConfig struct {
	ServerURL                string  `toml:"server_url"`
	MeterName                string  `toml:"meter_name"`
	StoragePath              string  `toml:"storage_path"`
	ServerTimeout            string  `toml:"server_timeout"`
	MinSendInterval          string  `toml:"min_send_interval"`
	MaxBatchSize             int     `toml:"max_batch_size"`
	MaxEventsPerNotification *int    `toml:"max_events_per_notification"`
	RetryMaxAttempts         *int    `toml:"retry_max_attempts"`
	RetryMinDelay            string  `toml:"retry_min_delay"`
	RetryMaxDelay            string  `toml:"retry_max_delay"`
	RetryFactor              float64 `toml:"retry_factor"`
	Simulate                 string  `toml:"simulate"`
	Verbose                  *bool   `toml:"verbose"`
	MetricsAddr              string  `toml:"metrics_addr"`
	DeviceIDPath             string  `toml:"device_id_path"`
	RegistrationURL          string  `toml:"registration_url"`
}

// LoadFileConfig reads and parses a TOML config file.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.meter/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".meter", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies file values to cfg, skipping flags that were set
// explicitly (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("server-url", fc.ServerURL, &cfg.ServerURL)
	s.setString("meter-name", fc.MeterName, &cfg.MeterName)
	s.setString("storage-path", fc.StoragePath, &cfg.StoragePath)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("device-id-path", fc.DeviceIDPath, &cfg.DeviceIDPath)
	s.setString("registration-url", fc.RegistrationURL, &cfg.RegistrationURL)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"timeout", fc.ServerTimeout, &cfg.ServerTimeout},
		{"min-send-interval", fc.MinSendInterval, &cfg.MinSendInterval},
		{"retry-min-delay", fc.RetryMinDelay, &cfg.RetryMinDelay},
		{"retry-max-delay", fc.RetryMaxDelay, &cfg.RetryMaxDelay},
		{"simulate", fc.Simulate, &cfg.Simulate},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("max-batch-size", fc.MaxBatchSize, &cfg.MaxBatchSize)
	s.setIntPtr("max-events", fc.MaxEventsPerNotification, &cfg.MaxEventsPerNotification)
	s.setIntPtr("retry-max-attempts", fc.RetryMaxAttempts, &cfg.RetryMaxAttempts)
	s.setFloat("retry-factor", fc.RetryFactor, &cfg.RetryFactor)

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
