// Package display renders the meter status for a human operator.
package display

import (
	"fmt"
	"io"
	"sync"
)

// Console writes the meter name and count as one line per update.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsole creates a console display writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// ShowTicks prints the current status line.
func (c *Console) ShowTicks(meterName string, count uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "Meter %s  Ticks: %d\n", meterName, count)
}

// ShowUnregistered prints the waiting-for-registration status line.
func (c *Console) ShowUnregistered(configPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "Unregistered meter, waiting for meter_name in %s\n", configPath)
}
