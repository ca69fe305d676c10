// Package lifecycle tracks the run state of a long-lived component and
// coordinates its background workers on shutdown.
//
// Valid state transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Stopping, Crashed
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped, Crashed
//   - Crashed -> Starting
//
// Typical use:
//
//	m := lifecycle.NewManager(logger, nil)
//	if err := m.TransitionTo(lifecycle.StateStarting, "start"); err != nil {
//	    return err
//	}
//	m.Go(ctx, relay.Run)
//	...
//	m.Cancel()
//	err := m.WaitWithTimeout(lifecycle.ShutdownTimeout)
package lifecycle
