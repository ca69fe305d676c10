package cliconfig

import (
	"fmt"
	"os"
	"strings"
)

// ReadDeviceID reads the device identifier shown to users when the meter
// still needs to be registered.
func ReadDeviceID(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read device id: %w", err)
	}
	id := strings.TrimSpace(string(b))
	if id == "" {
		return "", fmt.Errorf("read device id: %s is empty", path)
	}
	return id, nil
}

// RegistrationLink returns the URL a user opens to register this device,
// or "" when no registration URL is configured.
func (c *Config) RegistrationLink() (string, error) {
	if c.RegistrationURL == "" {
		return "", nil
	}
	if c.DeviceIDPath == "" {
		return c.RegistrationURL, nil
	}
	id, err := ReadDeviceID(c.DeviceIDPath)
	if err != nil {
		return "", err
	}
	return c.RegistrationURL + "#" + id, nil
}
