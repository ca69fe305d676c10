package delivery

import (
	"context"

	"github.com/hkniberg/meter/pkg/batch"
	"github.com/hkniberg/meter/pkg/notification"
	"github.com/hkniberg/meter/pkg/sequence"
)

// SendBatches splits ns into batches of at most maxBatchSize and delivers
// them one request at a time, in order. A batch starts only after the one
// before it was acknowledged.
//
// If a batch fails after all its retries the remaining batches are not sent
// and an *UndeliveredError lists everything that was not delivered.
func (c *Client) SendBatches(ctx context.Context, ns []notification.Notification, maxBatchSize int) error {
	if len(ns) == 0 {
		return nil
	}

	batches := batch.Split(ns, maxBatchSize)
	tasks := make([]sequence.Task[int], len(batches))
	for i, b := range batches {
		b := b
		tasks[i] = func(ctx context.Context) (int, error) {
			if err := c.SendMany(ctx, b); err != nil {
				return 0, err
			}
			return len(b), nil
		}
	}

	sent, err := sequence.Run(ctx, tasks)
	if err == nil {
		return nil
	}

	delivered := 0
	for _, n := range sent {
		delivered += n
	}
	return &UndeliveredError{
		Delivered:   delivered,
		Undelivered: append([]notification.Notification(nil), ns[delivered:]...),
		Err:         err,
	}
}
