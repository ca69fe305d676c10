// Package sequence runs deferred tasks strictly one after another.
//
// Tasks are plain functions, so nothing runs until Run calls it. Task i+1
// starts only after task i has returned, which keeps delivery order equal
// to submission order.
package sequence

import (
	"context"
	"errors"
	"fmt"
)

// Task is a deferred unit of work.
type Task[T any] func(ctx context.Context) (T, error)

// TaskError reports which task failed.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

type options struct {
	continueOnError bool
}

// Option configures Run.
type Option func(*options)

// ContinueOnError keeps running the remaining tasks after a failure. Failed
// tasks leave the zero value in their result slot and every failure is
// reported in the returned error.
func ContinueOnError() Option {
	return func(o *options) { o.continueOnError = true }
}

// Run executes tasks in order and returns their results in the same order.
//
// By default Run stops at the first failing task and returns the results of
// the tasks before it together with a *TaskError. A cancelled context stops
// the sequence before the next task starts.
func Run[T any](ctx context.Context, tasks []Task[T], opts ...Option) ([]T, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]T, 0, len(tasks))
	var errs []error
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, &TaskError{Index: i, Err: err})
			break
		}

		res, err := task(ctx)
		if err != nil {
			errs = append(errs, &TaskError{Index: i, Err: err})
			if !o.continueOnError {
				break
			}
			var zero T
			res = zero
		}
		results = append(results, res)
	}

	switch len(errs) {
	case 0:
		return results, nil
	case 1:
		return results, errs[0]
	default:
		return results, errors.Join(errs...)
	}
}
