package models

import (
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by store operations that address a missing row.
var ErrNotFound = errors.New("not found")

// ErrConflict is wrapped when a write violates a uniqueness constraint.
var ErrConflict = errors.New("already exists")

// ValidationError reports missing or invalid user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid returns a *ValidationError for field.
func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// AuthError reports a failed sign-in, sign-up or session check.
// Message is safe to show to the user.
type AuthError struct {
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// StoreError reports a failed read or write against the database.
// Action names the user-visible operation, e.g. "Workout not saved successfully".
type StoreError struct {
	Action string
	Err    error
}

func (e *StoreError) Error() string {
	return e.Action + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// StoreFailure wraps err in a *StoreError unless it is nil or already
// a ValidationError or StoreError.
func StoreFailure(action string, err error) error {
	if err == nil {
		return nil
	}
	var ve *ValidationError
	var se *StoreError
	if errors.As(err, &ve) || errors.As(err, &se) {
		return err
	}
	return &StoreError{Action: action, Err: err}
}

// DecodeError reports a stored document whose shape does not match its schema.
type DecodeError struct {
	Document string
	Path     string
	Reason   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s at %s: %s", e.Document, e.Path, e.Reason)
}
