package registry

import (
	"errors"
	"fmt"
	"time"
)

// Failure kinds. A *Error matches its kind with errors.Is.
var (
	// ErrAuth means the key is missing or rejected. Fatal to a mapping run.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited means the source refused the request after one backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound means the entity does not exist. List operations translate
	// it into an empty result.
	ErrNotFound = errors.New("not found")

	// ErrTransient means a network failure or 5xx persisted through retries.
	ErrTransient = errors.New("transient failure")

	// ErrUnexpected covers responses that are neither success nor a known failure.
	ErrUnexpected = errors.New("unexpected response")

	// ErrNoSource is returned when no configured source can serve a request.
	ErrNoSource = errors.New("no registry source configured")
)

// Error is a classified registry failure.
type Error struct {
	Kind       error
	Source     string
	Op         string
	Status     int
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must abort a mapping run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuth)
}
