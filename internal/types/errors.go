package types

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable error class surfaced to callers.
type Kind string

const (
	KindInvalidOrder        Kind = "INVALID_ORDER"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindNotFound            Kind = "NOT_FOUND"
	KindInvariantViolation  Kind = "INVARIANT_VIOLATION"
	KindExternalFailure     Kind = "EXTERNAL_FAILURE"
)

// Error is the error type returned across package boundaries. The Kind is
// part of the public contract; the message is for humans.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match two Errors on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// E builds a new Error of the given kind.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and message while keeping the chain intact.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind carried by err, or "" when err has none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
