// Package delivery sends tick notifications to the collector and keeps
// retrying until the collector acknowledges them.
//
// Every attempt is a single HTTP POST carrying the whole payload as JSON:
// one object for SendOne, an array for SendMany. Any status in [200, 300]
// counts as acknowledged. Other statuses and transport errors are retried
// according to the configured retry.Policy; once it gives up the call
// returns an *Error matching retry.ErrExhausted.
//
//	client, err := delivery.New(delivery.Config{
//	    ServerURL: "https://collector.example.com/ticks",
//	    Timeout:   10 * time.Second,
//	    Retry:     retry.DefaultPolicy(),
//	})
//	if err != nil {
//	    return err
//	}
//	err = client.SendBatches(ctx, notifications, 50)
//
// The client keeps no state between calls. Holding on to undelivered
// notifications is the caller's job.
package delivery
