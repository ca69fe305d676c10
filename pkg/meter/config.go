package meter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hkniberg/meter/pkg/lifecycle"
	"github.com/hkniberg/meter/pkg/retry"
)

// Config holds the settings of a Meter.
type Config struct {
	// ServerURL is the collector endpoint notifications are POSTed to.
	ServerURL string
	// MeterName identifies this meter to the collector.
	MeterName string
	// StoragePath is the file holding the durable count.
	StoragePath string

	// ServerTimeout bounds every single delivery attempt.
	ServerTimeout time.Duration
	// MinSendInterval is the minimum time between two sends.
	MinSendInterval time.Duration
	// MaxBatchSize is the maximum number of notifications per request.
	MaxBatchSize int
	// MaxEventsPerNotification caps the events packed into one
	// notification. Zero puts all pending events into one.
	MaxEventsPerNotification int

	Retry retry.Policy

	// Simulate emits a tick at this interval when no source is given.
	Simulate time.Duration
	// Verbose logs every delivery attempt.
	Verbose bool

	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values. ServerURL and
// MeterName must still be set.
func DefaultConfig() Config {
	return Config{
		StoragePath:              DefaultStoragePath(),
		ServerTimeout:            10 * time.Second,
		MinSendInterval:          10 * time.Second,
		MaxBatchSize:             10,
		MaxEventsPerNotification: 100,
		Retry:                    retry.DefaultPolicy(),
		ShutdownTimeout:          lifecycle.ShutdownTimeout,
	}
}

// DefaultStoragePath returns $HOME/.meter/count, or a relative path when
// the home directory is unknown.
func DefaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".meter", "count")
	}
	return filepath.Join(home, ".meter", "count")
}

// SetDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.StoragePath == "" {
		c.StoragePath = d.StoragePath
	}
	if c.ServerTimeout == 0 {
		c.ServerTimeout = d.ServerTimeout
	}
	if c.MinSendInterval == 0 {
		c.MinSendInterval = d.MinSendInterval
	}
	if c.MaxBatchSize == 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.Retry == (retry.Policy{}) {
		c.Retry = d.Retry
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.ServerURL == "" {
		return errors.New("server url is required")
	}
	if c.MeterName == "" {
		return errors.New("meter name is required")
	}
	if c.StoragePath == "" {
		return errors.New("storage path is required")
	}
	if c.ServerTimeout <= 0 {
		return fmt.Errorf("server timeout must be > 0, got %s", c.ServerTimeout)
	}
	if c.MinSendInterval <= 0 {
		return fmt.Errorf("min send interval was %s, but it should be > 0", c.MinSendInterval)
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("max batch size must be > 0, got %d", c.MaxBatchSize)
	}
	if c.MaxEventsPerNotification < 0 {
		return fmt.Errorf("max events per notification must be >= 0, got %d", c.MaxEventsPerNotification)
	}
	if c.Simulate < 0 {
		return fmt.Errorf("simulate interval must be >= 0, got %s", c.Simulate)
	}
	return c.Retry.Validate()
}
