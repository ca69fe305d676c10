package retry

import (
	"errors"
	"time"
)

// Policy configures attempt limits and the shape of the delay between
// attempts.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Zero means retry until success.
	MaxAttempts int

	// MinDelay is the delay before the first retry. It must be positive:
	// the delay grows by multiplication, so zero would stay zero.
	MinDelay time.Duration

	// MaxDelay caps the delay between attempts.
	MaxDelay time.Duration

	// Factor multiplies the delay after each retry.
	Factor float64

	// Jitter randomizes each delay by +/- this fraction.
	Jitter float64
}

// DefaultPolicy retries forever, starting at one second and backing off to
// one minute.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 0,
		MinDelay:    time.Second,
		MaxDelay:    time.Minute,
		Factor:      2,
		Jitter:      0.2,
	}
}

// Unlimited reports whether the policy never gives up on its own.
func (p Policy) Unlimited() bool {
	return p.MaxAttempts == 0
}

// Validate checks the policy for errors.
func (p Policy) Validate() error {
	if p.MaxAttempts < 0 {
		return errors.New("retry: max attempts must not be negative")
	}
	if p.MinDelay <= 0 {
		return errors.New("retry: min delay must be positive")
	}
	if p.MaxDelay < p.MinDelay {
		return errors.New("retry: max delay must be >= min delay")
	}
	if p.Factor < 1 {
		return errors.New("retry: factor must be >= 1")
	}
	if p.Jitter < 0 || p.Jitter >= 1 {
		return errors.New("retry: jitter must be in [0, 1)")
	}
	return nil
}
