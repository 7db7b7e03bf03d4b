// Package errors provides the typed error kinds surfaced by the wheel engine.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// InvalidStateError reports a command issued against a chain whose current
// lifecycle state forbids it.
type InvalidStateError struct {
	ChainID   string
	Operation string
	State     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s chain %s in state %s", e.Operation, e.ChainID, e.State)
}

// NewInvalidStateError creates a new InvalidStateError.
func NewInvalidStateError(chainID, operation, state string) *InvalidStateError {
	return &InvalidStateError{ChainID: chainID, Operation: operation, State: state}
}

// NotFoundError reports an operation referencing an entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// DataUnavailableError reports a requested figure whose prerequisite input was
// not supplied (e.g. unrealized P&L without a current price).
type DataUnavailableError struct {
	Field  string
	Reason string
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %s", e.Field, e.Reason)
}

// NewDataUnavailableError creates a new DataUnavailableError.
func NewDataUnavailableError(field, reason string) *DataUnavailableError {
	return &DataUnavailableError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsInvalidState reports whether err is an InvalidStateError.
func IsInvalidState(err error) bool {
	var e *InvalidStateError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsDataUnavailable reports whether err is a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	var e *DataUnavailableError
	return errors.As(err, &e)
}
