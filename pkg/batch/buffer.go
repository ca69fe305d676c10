package batch

import (
	"sync"
	"time"
)

// Buffer accumulates items until they are sent. It is safe for concurrent
// use: items usually arrive from an event callback while a separate loop
// drains them.
type Buffer[T any] struct {
	mu           sync.Mutex
	items        []T
	sendInterval time.Duration
	lastSend     time.Time
	now          func() time.Time
}

// NewBuffer creates a buffer that reports itself due every sendInterval.
func NewBuffer[T any](sendInterval time.Duration) *Buffer[T] {
	return &Buffer[T]{
		sendInterval: sendInterval,
		lastSend:     time.Now(),
		now:          time.Now,
	}
}

// Add appends items to the end of the buffer.
func (b *Buffer[T]) Add(items ...T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, items...)
}

// Requeue puts items back at the front, ahead of anything added since they
// were drained.
func (b *Buffer[T]) Requeue(items []T) {
	if len(items) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	merged := make([]T, 0, len(items)+len(b.items))
	merged = append(merged, items...)
	b.items = append(merged, b.items...)
}

// Drain removes and returns everything pending and restarts the send
// interval.
func (b *Buffer[T]) Drain() []T {
	b.mu.Lock()
	defer b.mu.Unlock()
	items := b.items
	b.items = nil
	b.lastSend = b.now()
	return items
}

// ShouldSend returns true if items are pending and the send interval has
// elapsed since the last drain.
func (b *Buffer[T]) ShouldSend() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == 0 {
		return false
	}
	return b.now().Sub(b.lastSend) >= b.sendInterval
}

// Len returns the number of pending items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// HasPending returns true if there are items waiting to be sent.
func (b *Buffer[T]) HasPending() bool {
	return b.Len() > 0
}

// TimeSinceLastSend returns the duration since the last drain.
func (b *Buffer[T]) TimeSinceLastSend() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.now().Sub(b.lastSend)
}
