// Package retry runs an operation until it succeeds or a Policy gives up.
//
// One call moves through a small state machine:
//
//	Idle -> Attempting -> Succeeded
//	             |
//	             v
//	         Retrying -> Attempting ...
//	             |
//	             v
//	         Exhausted
//
// The delay between attempts grows exponentially with jitter and is capped
// by the policy's MaxDelay. Exhaustion is reported as an *ExhaustedError that
// matches ErrExhausted and wraps the last failure.
package retry
