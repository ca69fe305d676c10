package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hkniberg/meter/pkg/meter"
	"github.com/hkniberg/meter/pkg/retry"
)

// Config holds CLI configuration for the meter.
type Config struct {
	ServerURL   string
	MeterName   string
	StoragePath string

	ServerTimeout            time.Duration
	MinSendInterval          time.Duration
	MaxBatchSize             int
	MaxEventsPerNotification int

	RetryMaxAttempts int
	RetryMinDelay    time.Duration
	RetryMaxDelay    time.Duration
	RetryFactor      float64

	Simulate    time.Duration
	Verbose     bool
	MetricsAddr string

	DeviceIDPath    string
	RegistrationURL string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	mc := meter.DefaultConfig()
	return Config{
		StoragePath:              mc.StoragePath,
		ServerTimeout:            mc.ServerTimeout,
		MinSendInterval:          mc.MinSendInterval,
		MaxBatchSize:             mc.MaxBatchSize,
		MaxEventsPerNotification: mc.MaxEventsPerNotification,
		RetryMaxAttempts:         mc.Retry.MaxAttempts,
		RetryMinDelay:            mc.Retry.MinDelay,
		RetryMaxDelay:            mc.Retry.MaxDelay,
		RetryFactor:              mc.Retry.Factor,
	}
}

// Validate checks the configuration for errors. MeterName is not checked
// here because the CLI can wait for it to be registered.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server-url is required")
	}
	c.ServerURL = strings.TrimRight(c.ServerURL, "/")

	if c.StoragePath == "" {
		return fmt.Errorf("storage-path is required")
	}
	if c.MinSendInterval <= 0 {
		return fmt.Errorf("min-send-interval was %s, but it should be > 0", c.MinSendInterval)
	}
	if c.ServerTimeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxBatchSize <= 0 {
		return fmt.Errorf("max-batch-size must be positive")
	}
	if c.MaxEventsPerNotification < 0 {
		return fmt.Errorf("max-events must not be negative")
	}
	if c.Simulate < 0 {
		return fmt.Errorf("simulate must not be negative")
	}
	return c.RetryPolicy().Validate()
}

// RetryPolicy builds the delivery retry policy from the retry settings.
func (c *Config) RetryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = c.RetryMaxAttempts
	p.MinDelay = c.RetryMinDelay
	p.MaxDelay = c.RetryMaxDelay
	p.Factor = c.RetryFactor
	return p
}

// MeterConfig converts the CLI configuration into a meter.Config.
func (c *Config) MeterConfig() meter.Config {
	mc := meter.DefaultConfig()
	mc.ServerURL = c.ServerURL
	mc.MeterName = c.MeterName
	mc.StoragePath = c.StoragePath
	mc.ServerTimeout = c.ServerTimeout
	mc.MinSendInterval = c.MinSendInterval
	mc.MaxBatchSize = c.MaxBatchSize
	mc.MaxEventsPerNotification = c.MaxEventsPerNotification
	mc.Retry = c.RetryPolicy()
	mc.Simulate = c.Simulate
	mc.Verbose = c.Verbose
	return mc
}

// configSetter applies values unless the corresponding flag was set
// explicitly on the command line.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value if present and flag not changed. Zero is a
// valid value for fields where it means unlimited.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses an environment value; non-positive values are
// ignored like their file counterparts.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setCountFromString parses an environment value where zero means
// unlimited; negative values are rejected.
func (s *configSetter) setCountFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return fmt.Errorf("%s must be >= 0, got %d", flag, i)
	}
	*dst = i
	return nil
}

func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
