package source

import (
	"context"
	"fmt"
	"time"

	"github.com/hkniberg/meter/pkg/log"
)

// Simulated emits one tick every Interval.
type Simulated struct {
	Interval time.Duration
	Logger   log.Logger
}

// Run ticks until ctx is done.
func (s Simulated) Run(ctx context.Context, onTick func()) error {
	if s.Interval <= 0 {
		return fmt.Errorf("simulated source: interval must be > 0, got %s", s.Interval)
	}
	logger := log.OrNoop(s.Logger)

	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			logger.Debug("simulating a tick")
			onTick()
		}
	}
}
