package errors

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Services wrap one of these so handlers
// can map a failure to a status code with errors.Is.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrAlreadyAccepted = errors.New("already accepted")
	ErrInvalidRange    = errors.New("invalid range")
	ErrValidation      = errors.New("validation error")
	ErrUpstream        = errors.New("upstream failure")
)

var kinds = []error{
	ErrUnauthenticated,
	ErrForbidden,
	ErrNotFound,
	ErrExpired,
	ErrAlreadyAccepted,
	ErrInvalidRange,
	ErrValidation,
	ErrUpstream,
}

// Error is a domain error carrying a kind and a caller-facing message.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

// New creates a domain error of the given kind.
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	return e.Msg
}

// Unwrap exposes both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Validation reports a missing or malformed input.
func Validation(msg string) error {
	return New(ErrValidation, msg)
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return New(ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps a failure from the store, identity provider or email
// provider. The cause's message is kept verbatim.
func Upstream(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: ErrUpstream, Msg: op + ": " + err.Error(), Err: err}
}

// KindOf returns the kind err belongs to, or nil for unclassified errors.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

