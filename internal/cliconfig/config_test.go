package cliconfig

import (
	"testing"
	"time"

	"github.com/hkniberg/meter/pkg/retry"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MinSendInterval <= 0 {
		t.Errorf("MinSendInterval = %v, want > 0", cfg.MinSendInterval)
	}
	if cfg.StoragePath == "" {
		t.Error("StoragePath is empty")
	}
	if cfg.RetryPolicy().MaxAttempts != 0 {
		t.Errorf("default retry should be unlimited, got %d attempts", cfg.RetryMaxAttempts)
	}
	if err := cfg.RetryPolicy().Validate(); err != nil {
		t.Errorf("default retry policy invalid: %v", err)
	}
}

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.ServerURL = "http://localhost:8080/ticks"
	cfg.StoragePath = "/tmp/count"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"meter name may be empty", func(c *Config) { c.MeterName = "" }, false},
		{"missing server url", func(c *Config) { c.ServerURL = "" }, true},
		{"missing storage path", func(c *Config) { c.StoragePath = "" }, true},
		{"zero send interval", func(c *Config) { c.MinSendInterval = 0 }, true},
		{"negative send interval", func(c *Config) { c.MinSendInterval = -time.Second }, true},
		{"zero timeout", func(c *Config) { c.ServerTimeout = 0 }, true},
		{"zero batch size", func(c *Config) { c.MaxBatchSize = 0 }, true},
		{"negative simulate", func(c *Config) { c.Simulate = -time.Second }, true},
		{"retry factor below one", func(c *Config) { c.RetryFactor = 0.5 }, true},
		{"retry max below min", func(c *Config) { c.RetryMaxDelay = time.Millisecond }, true},
		{"retry min delay zero", func(c *Config) { c.RetryMinDelay = 0 }, true},
		{"negative max events", func(c *Config) { c.MaxEventsPerNotification = -1 }, true},
		{"zero max events", func(c *Config) { c.MaxEventsPerNotification = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_TrimsTrailingSlash(t *testing.T) {
	cfg := validConfig()
	cfg.ServerURL = "http://localhost:8080/ticks/"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if cfg.ServerURL != "http://localhost:8080/ticks" {
		t.Errorf("ServerURL = %v", cfg.ServerURL)
	}
}

func TestConfig_MeterConfig(t *testing.T) {
	cfg := validConfig()
	cfg.MeterName = "kitchen"
	cfg.RetryMaxAttempts = 4
	cfg.Simulate = 2 * time.Second
	cfg.Verbose = true

	mc := cfg.MeterConfig()
	if mc.ServerURL != cfg.ServerURL || mc.MeterName != "kitchen" || mc.StoragePath != cfg.StoragePath {
		t.Errorf("MeterConfig() = %+v", mc)
	}
	if mc.Retry.MaxAttempts != 4 || mc.Retry.Jitter != retry.DefaultPolicy().Jitter {
		t.Errorf("Retry = %+v", mc.Retry)
	}
	if mc.Simulate != 2*time.Second || !mc.Verbose {
		t.Errorf("Simulate/Verbose = %v/%v", mc.Simulate, mc.Verbose)
	}
	if err := mc.Validate(); err != nil {
		t.Errorf("converted config invalid: %v", err)
	}
}
