package models

import (
	"errors"
	"fmt"
)

// LimitExceededCode is the wire code attached to subscription limit errors.
const LimitExceededCode = "95 0901"

// TransientError marks a failure worth retrying: database hiccups, HTTP
// timeouts, gateway 5xx. The event-processing loops surface it and let the
// source redeliver.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// ValidationError marks bad caller input. It surfaces at the API boundary as
// a 4xx and never reaches the core loops.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// FatalError marks a bug or corrupted data: an unknown topic_type value, a
// malformed asset id read back from the database, an impossible event/topic
// combination. The current transaction is aborted and processing stops.
type FatalError struct {
	Reason string
}

func (e *FatalError) Error() string { return "fatal: " + e.Reason }

// IsFatal reports whether err indicates corrupted data or a bug.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}

// LimitExceededError rejects a subscribe request that would push an address
// over one of the per-address caps.
type LimitExceededError struct {
	Address Address
	Limit   int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("subscription limit %d exceeded for address %s (code %s)",
		e.Limit, e.Address, LimitExceededCode)
}
