package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrExhausted is matched by errors returned when a policy runs out of
// attempts.
var ErrExhausted = errors.New("retry: attempts exhausted")

// ExhaustedError reports a call that failed on every allowed attempt.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts in %s: %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

// State is a step of one Do call.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateRetrying
	StateSucceeded
	StateExhausted
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAttempting:
		return "Attempting"
	case StateRetrying:
		return "Retrying"
	case StateSucceeded:
		return "Succeeded"
	case StateExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// Func is one attempt. attempt starts at 1.
type Func func(ctx context.Context, attempt int) error

// RetryInfo describes a failed attempt that will be retried.
type RetryInfo struct {
	Attempt int
	Elapsed time.Duration
	Delay   time.Duration
	Err     error
}

type options struct {
	onRetry func(RetryInfo)
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures Do.
type Option func(*options)

// OnRetry is called after each failed attempt that will be retried, before
// the delay.
func OnRetry(fn func(RetryInfo)) Option {
	return func(o *options) { o.onRetry = fn }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. Do returns it unwrapped right
// away.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do calls fn until it succeeds or the policy is exhausted. A cancelled
// context ends the loop between attempts with the context's error.
func Do(ctx context.Context, p Policy, fn Func, opts ...Option) error {
	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		backoff = NewBackoff(p)
		start   = time.Now()
		state   = StateIdle
		attempt int
		lastErr error
	)

	for {
		switch state {
		case StateIdle:
			state = StateAttempting

		case StateAttempting:
			attempt++
			err := fn(ctx, attempt)
			if err == nil {
				state = StateSucceeded
				continue
			}
			var perm *permanentError
			if errors.As(err, &perm) {
				return perm.err
			}
			lastErr = err
			if !p.Unlimited() && attempt >= p.MaxAttempts {
				state = StateExhausted
				continue
			}
			state = StateRetrying

		case StateRetrying:
			delay := backoff.Next()
			if o.onRetry != nil {
				o.onRetry(RetryInfo{
					Attempt: attempt,
					Elapsed: time.Since(start),
					Delay:   delay,
					Err:     lastErr,
				})
			}
			if err := o.sleep(ctx, delay); err != nil {
				return fmt.Errorf("retry aborted after %d attempts: %w", attempt, err)
			}
			state = StateAttempting

		case StateSucceeded:
			return nil

		case StateExhausted:
			return &ExhaustedError{
				Attempts: attempt,
				Elapsed:  time.Since(start),
				Last:     lastErr,
			}
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
