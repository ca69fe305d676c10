// Package meter provides an embeddable tick meter: it counts pulses from a
// tick source into a durable counter and delivers them to a collector.
//
// # Basic Usage
//
//	cfg := meter.DefaultConfig()
//	cfg.ServerURL = "http://collector.local/energy"
//	cfg.MeterName = "kitchen"
//	cfg.Simulate = 5 * time.Second
//
//	m, err := meter.New(cfg, meter.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := m.Start(ctx); err != nil {
//	    return err
//	}
//	defer m.Stop()
//
// A real pulse input is plugged in with [WithSource]; without one,
// Config.Simulate must be set.
//
// # Delivery guarantees
//
// A tick is counted once it has been persisted. Delivery to the collector
// is at-least-once: notifications carry a unique ID and may be resent
// after a failure, in their original order.
//
// # Lifecycle States
//
// A Meter moves through Stopped, Starting, Running, Stopping and Crashed.
// [Meter.Status] reports the current state; a crashed meter can be
// started again.
package meter
