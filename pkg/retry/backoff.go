package retry

import (
	"math/rand"
	"time"
)

// Backoff produces exponentially growing, jittered delays.
type Backoff struct {
	policy  Policy
	current time.Duration
	rand    func() float64
}

// NewBackoff creates a backoff following p.
func NewBackoff(p Policy) *Backoff {
	return &Backoff{
		policy:  p,
		current: p.MinDelay,
		rand:    rand.Float64,
	}
}

// Next returns the delay to wait now and grows the delay for next time.
func (b *Backoff) Next() time.Duration {
	d := b.current

	if b.policy.Jitter > 0 {
		jitter := float64(d) * b.policy.Jitter * (b.rand()*2 - 1)
		d = time.Duration(float64(d) + jitter)
	}
	if d > b.policy.MaxDelay {
		d = b.policy.MaxDelay
	}
	if d < 0 {
		d = 0
	}

	next := time.Duration(float64(b.current) * b.policy.Factor)
	if next > b.policy.MaxDelay || next < b.current {
		next = b.policy.MaxDelay
	}
	b.current = next
	return d
}

// Reset resets the backoff to the minimum delay.
func (b *Backoff) Reset() {
	b.current = b.policy.MinDelay
}

// Current returns the un-jittered delay Next will start from.
func (b *Backoff) Current() time.Duration {
	return b.current
}
