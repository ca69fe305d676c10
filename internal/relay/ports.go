package relay

import (
	"context"

	"github.com/hkniberg/meter/pkg/notification"
)

// Source produces ticks. Run calls onTick once per tick and blocks until
// ctx is done or the source is exhausted.
type Source interface {
	Run(ctx context.Context, onTick func()) error
}

// Display shows the meter name and the current count to a human.
type Display interface {
	ShowTicks(meterName string, count uint64)
}

// Counter is the durable tick count.
type Counter interface {
	Count() uint64
	Increment() (uint64, error)
}

// Sender delivers notifications in batches, in order.
type Sender interface {
	SendBatches(ctx context.Context, ns []notification.Notification, maxBatchSize int) error
}

type noopDisplay struct{}

func (noopDisplay) ShowTicks(string, uint64) {}
