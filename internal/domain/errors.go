package domain

import (
	"errors"
	"fmt"
)

// Kind classifies expected business failures so callers can branch on them
// without string matching. Unexpected faults stay plain wrapped errors.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindInsufficientFunds   Kind = "insufficient_funds"
	KindProviderUnavailable Kind = "provider_unavailable"
	KindLimitExceeded       Kind = "limit_exceeded"
	KindQuoteExpired        Kind = "quote_expired"
	KindConflict            Kind = "conflict"
)

// Error is a business failure with a stable kind and a human-readable message.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes sentinel comparison work across distinct instances of the same kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

// E constructs a kinded error with a formatted message.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Sentinels for the common kinds; use errors.Is against these.
var (
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInsufficientFunds   = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable, Message: "provider unavailable"}
	ErrLimitExceeded       = &Error{Kind: KindLimitExceeded, Message: "amount outside allowed limits"}
	ErrQuoteExpired        = &Error{Kind: KindQuoteExpired, Message: "quote expired"}
)
