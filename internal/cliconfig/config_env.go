package cliconfig

import "os"

// ApplyEnvConfig applies METER_* environment variables to cfg, skipping
// flags that were set explicitly. Returns an error for malformed values.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("server-url", os.Getenv("METER_SERVER_URL"), &cfg.ServerURL)
	s.setString("meter-name", os.Getenv("METER_NAME"), &cfg.MeterName)
	s.setString("storage-path", os.Getenv("METER_STORAGE_PATH"), &cfg.StoragePath)
	s.setString("metrics-addr", os.Getenv("METER_METRICS_ADDR"), &cfg.MetricsAddr)
	s.setString("device-id-path", os.Getenv("METER_DEVICE_ID_PATH"), &cfg.DeviceIDPath)
	s.setString("registration-url", os.Getenv("METER_REGISTRATION_URL"), &cfg.RegistrationURL)

	if err := s.setDuration("timeout", os.Getenv("METER_SERVER_TIMEOUT"), &cfg.ServerTimeout); err != nil {
		return err
	}
	if err := s.setDuration("min-send-interval", os.Getenv("METER_MIN_SEND_INTERVAL"), &cfg.MinSendInterval); err != nil {
		return err
	}
	if err := s.setDuration("retry-min-delay", os.Getenv("METER_RETRY_MIN_DELAY"), &cfg.RetryMinDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", os.Getenv("METER_RETRY_MAX_DELAY"), &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("simulate", os.Getenv("METER_SIMULATE"), &cfg.Simulate); err != nil {
		return err
	}

	if err := s.setIntFromString("max-batch-size", os.Getenv("METER_MAX_BATCH_SIZE"), &cfg.MaxBatchSize); err != nil {
		return err
	}
	if err := s.setCountFromString("max-events", os.Getenv("METER_MAX_EVENTS_PER_NOTIFICATION"), &cfg.MaxEventsPerNotification); err != nil {
		return err
	}
	if err := s.setCountFromString("retry-max-attempts", os.Getenv("METER_RETRY_MAX_ATTEMPTS"), &cfg.RetryMaxAttempts); err != nil {
		return err
	}
	if err := s.setFloatFromString("retry-factor", os.Getenv("METER_RETRY_FACTOR"), &cfg.RetryFactor); err != nil {
		return err
	}

	s.setBoolFromString("verbose", os.Getenv("METER_VERBOSE"), &cfg.Verbose)

	return nil
}
