package delivery

import (
	"errors"
	"fmt"

	"github.com/hkniberg/meter/pkg/notification"
	"github.com/hkniberg/meter/pkg/retry"
)

var (
	// ErrExhausted is matched by errors from calls that used up their retries.
	ErrExhausted = retry.ErrExhausted

	// ErrInvalidConfig is returned when client configuration validation fails.
	ErrInvalidConfig = errors.New("delivery: invalid configuration")
)

// Error is returned when a payload could not be delivered. StatusCode and
// Message describe the last attempt; StatusCode is 0 when the last attempt
// got no response at all.
type Error struct {
	Notifications int
	Attempts      int
	StatusCode    int
	Message       string
	Err           error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("deliver %d notifications: %d attempts, last status %d %q: %v",
			e.Notifications, e.Attempts, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("deliver %d notifications: %d attempts: %v", e.Notifications, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// UndeliveredError is returned by SendBatches when a batch fails. The batches
// before it were delivered; Undelivered holds the failed batch and everything
// after it, in order.
type UndeliveredError struct {
	Delivered   int
	Undelivered []notification.Notification
	Err         error
}

func (e *UndeliveredError) Error() string {
	return fmt.Sprintf("%d notifications delivered, %d undelivered: %v", e.Delivered, len(e.Undelivered), e.Err)
}

func (e *UndeliveredError) Unwrap() error { return e.Err }

// statusError is a non-success response.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.code, e.body)
}
