// Package errors defines the sentinel and typed errors shared by tabflow packages.
package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the tabflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrInvalidConfiguration indicates a malformed pipeline, reader or writer definition
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrValidationFailed indicates that a data-quality rule rejected a table
	ErrValidationFailed = errors.New("validation failed")

	// ErrStageFailed indicates that a pipeline stage terminated the run
	ErrStageFailed = errors.New("stage failed")

	// ErrColumnNotFound indicates a reference to a column the table does not have
	ErrColumnNotFound = errors.New("column not found")

	// ErrUnsupportedFormat indicates an unknown reader or writer format
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// ConfigurationError describes a single invalid setting. It always wraps
// ErrInvalidConfiguration.
type ConfigurationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

// Unwrap returns ErrInvalidConfiguration so callers can use errors.Is.
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(module, field string, value interface{}, reason string) *ConfigurationError {
	return &ConfigurationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ConfigurationError) WithHint(hint string) *ConfigurationError {
	e.Hint = hint
	return e
}

// OperationError wraps a failure of an I/O or processing operation with the
// module and operation that produced it.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra detail and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

// IsConfigurationError reports whether err is or wraps a configuration problem.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsValidationFailure reports whether err is or wraps a failed data-quality rule.
func IsValidationFailure(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}
