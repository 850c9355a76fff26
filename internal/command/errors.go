package command

import (
	"errors"
	"fmt"
)

// Static validation causes.
var (
	// ErrUnknownFilter is returned for a cosmetic filter name that is not supported.
	ErrUnknownFilter = errors.New("unknown filter")
	// ErrOutOfRange is returned when a numeric parameter is outside its accepted range.
	ErrOutOfRange = errors.New("value out of range")
	// ErrMissing is returned when a required parameter is empty.
	ErrMissing = errors.New("missing required parameter")
	// ErrUnknownTransition is returned for an unsupported xfade transition.
	ErrUnknownTransition = errors.New("unknown transition")
	// ErrUnknownMode is returned for an unsupported audio insertion mode.
	ErrUnknownMode = errors.New("unknown insertion mode")
)

// ValidationError reports a request parameter rejected before any process runs.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s: %v: %s", e.Field, e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error, format string, a ...any) *ValidationError {
	return &ValidationError{Field: field, Err: err, Reason: fmt.Sprintf(format, a...)}
}

func requirePath(field, v string) error {
	if v == "" {
		return &ValidationError{Field: field, Err: ErrMissing}
	}
	return nil
}

func requirePositive(field string, v float64) error {
	if !(v > 0) {
		return invalid(field, ErrOutOfRange, "must be positive, got %g", v)
	}
	return nil
}

func requireNonNegative(field string, v float64) error {
	if !(v >= 0) {
		return invalid(field, ErrOutOfRange, "must not be negative, got %g", v)
	}
	return nil
}
