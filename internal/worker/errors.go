package worker

import (
	"errors"
	"fmt"
)

// RetryableError marks an execution error as eligible for the normal
// retry policy — a handler can wrap a returned error with
// RetryableError{Err: err} to be explicit that a failure is transient; the
// retry/terminal decision itself is made uniformly from
// retry_count/max_retries regardless of error type (see PanicError).
type RetryableError struct{ Err error }

func (e RetryableError) Error() string { return e.Err.Error() }
func (e RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped as a RetryableError.
func IsRetryable(err error) bool {
	var retryable RetryableError
	return errors.As(err, &retryable)
}

// PanicError records that a handler invocation panicked. It is subject to
// the same retry_count < max_retries rule as any other execution error —
// spec.md §7 defines no separate no-retry-on-panic carve-out.
type PanicError struct {
	Value      any
	StackTrace string
}

func (e PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

// IsPanic reports whether err represents a recovered handler panic.
func IsPanic(err error) bool {
	var panicErr PanicError
	return errors.As(err, &panicErr)
}

// TimeoutError records that a handler did not complete within its
// declared timeout_seconds. The handler goroutine is not forcibly
// terminated; this only affects the row outcome (spec.md §4.5 step 3).
type TimeoutError struct{ TimeoutSeconds int }

func (e TimeoutError) Error() string {
	return fmt.Sprintf("timeout: handler exceeded %ds", e.TimeoutSeconds)
}

// IsTimeout reports whether err represents a dispatch timeout.
func IsTimeout(err error) bool {
	var timeoutErr TimeoutError
	return errors.As(err, &timeoutErr)
}
