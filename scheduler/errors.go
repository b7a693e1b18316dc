package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrNilWork       = errors.New("scheduler: work is nil")
	ErrClosed        = errors.New("scheduler: closed")
	ErrBadInterval   = errors.New("scheduler: interval must be positive")
	ErrRecurringDeps = errors.New("scheduler: recurring tasks cannot declare dependencies")
)

// NoRetry marks an error as non-retryable.
//
// Work can wrap validation errors or other permanent failures with NoRetry
// so the scheduler fails the task immediately instead of consuming the
// retry budget.
//
// Example:
//
//	return scheduler.NoRetry(fmt.Errorf("bad input: %w", err))
func NoRetry(err error) error {
	if err == nil {
		return nil
	}
	return noRetryError{err: err}
}

// IsNoRetry reports whether err is wrapped with NoRetry.
func IsNoRetry(err error) bool {
	var e noRetryError
	return errors.As(err, &e)
}

type noRetryError struct{ err error }

func (e noRetryError) Error() string { return fmt.Sprintf("no-retry: %v", e.err) }
func (e noRetryError) Unwrap() error { return e.err }
