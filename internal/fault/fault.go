// Package fault defines the error taxonomy shared by the pipeline:
// callers decide retry and HTTP mapping by matching these sentinels
// with errors.Is, never by inspecting error strings.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrInput marks caller mistakes (empty query, unreadable document).
	// Never retried.
	ErrInput = errors.New("invalid input")

	// ErrAuth marks an invalid or rejected credential. Never retried,
	// surfaced immediately and distinctly from transient failures.
	ErrAuth = errors.New("authentication failed")

	// ErrTransient marks failures worth retrying: network blips, rate
	// limits, timeouts.
	ErrTransient = errors.New("transient backend error")

	// ErrNotFound marks a missing resource (document, index).
	ErrNotFound = errors.New("not found")

	// ErrDegraded marks a backend that stayed down after the retry
	// budget was spent. The process keeps serving; health reflects it.
	ErrDegraded = errors.New("service degraded")
)

func Input(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}

func Auth(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrAuth, fmt.Sprintf(format, args...))
}

func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// Degraded wraps err once the retry budget is exhausted, preserving the
// original cause in the message.
func Degraded(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrDegraded, err)
}

func IsInput(err error) bool     { return errors.Is(err, ErrInput) }
func IsAuth(err error) bool      { return errors.Is(err, ErrAuth) }
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsDegraded(err error) bool  { return errors.Is(err, ErrDegraded) }

// Retryable reports whether another attempt could succeed. Anything not
// explicitly transient is treated as permanent.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient)
}
