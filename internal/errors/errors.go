// Package errors consolidates the error definitions of the configuration
// store and its backends.
//
// This file provides:
// - Backend result codes (polled operations report a Result, not an error)
// - Sentinel errors for all error conditions
// - Error category checking functions
// - ResultToError and ErrorToResult mapping
// - Error wrapping utilities
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Backend result codes - reported alongside the completion flag
// ============================================================================

// Result is the out-of-band status of a polled backend operation.
type Result int32

const (
	ResultOK         Result = 0
	ResultBusy       Result = 1
	ResultError      Result = 2
	ResultOutOfRange Result = 3
	ResultNotPresent Result = 4
)

// String returns a human-readable name for a result code.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultBusy:
		return "Busy"
	case ResultError:
		return "Error"
	case ResultOutOfRange:
		return "OutOfRange"
	case ResultNotPresent:
		return "NotPresent"
	default:
		return fmt.Sprintf("Result(%d)", int32(r))
	}
}

// Err converts the result into a sentinel error, nil for ResultOK.
func (r Result) Err() error {
	return ResultToError(r)
}

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Device errors
	ErrDeviceNotDetected = errors.New("storage device not detected")
	ErrIoFailure         = errors.New("storage i/o failure")
	ErrBusy              = errors.New("storage device busy")
	ErrOutOfRange        = errors.New("access beyond device capacity")
	ErrBankLocked        = errors.New("flash bank is locked")
	ErrNotErased         = errors.New("flash word not erased before program")

	// Record errors
	ErrInvalidRecord  = errors.New("invalid configuration record")
	ErrInvalidMagic   = errors.New("invalid record magic")
	ErrInvalidVersion = errors.New("invalid record version")
	ErrShortBuffer    = errors.New("buffer shorter than record")

	// Timer errors
	ErrPoolFull      = errors.New("timer pool full")
	ErrTimerNotFound = errors.New("timer not found")
	ErrInvalidTimer  = errors.New("invalid timer")

	// Store errors
	ErrAlreadyOpen  = errors.New("configuration store already open")
	ErrNotOpen      = errors.New("configuration store not open")
	ErrInvalidState = errors.New("invalid state")

	// Settings errors
	ErrUnknownField  = errors.New("unknown field")
	ErrInvalidValue  = errors.New("invalid value")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// Join is a convenience wrapper for errors.Join
var Join = errors.Join

// IsDeviceError returns true if err originates from a storage device.
func IsDeviceError(err error) bool {
	return errors.Is(err, ErrDeviceNotDetected) ||
		errors.Is(err, ErrIoFailure) ||
		errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, ErrBankLocked) ||
		errors.Is(err, ErrNotErased)
}

// IsRecordError returns true if err reports a damaged or foreign record.
func IsRecordError(err error) bool {
	return errors.Is(err, ErrInvalidRecord) ||
		errors.Is(err, ErrInvalidMagic) ||
		errors.Is(err, ErrInvalidVersion) ||
		errors.Is(err, ErrShortBuffer)
}

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTimerNotFound) ||
		errors.Is(err, ErrUnknownField)
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// IsRetriable returns true if the polling contract will retry the operation.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrBusy) ||
		errors.Is(err, ErrIoFailure)
}

// ============================================================================
// Result mapping
// ============================================================================

// ResultToError maps a backend result to its sentinel error.
func ResultToError(r Result) error {
	switch r {
	case ResultOK:
		return nil
	case ResultBusy:
		return ErrBusy
	case ResultOutOfRange:
		return ErrOutOfRange
	case ResultNotPresent:
		return ErrDeviceNotDetected
	default:
		return ErrIoFailure
	}
}

// ErrorToResult maps an error to the result a backend reports for it.
func ErrorToResult(err error) Result {
	if err == nil {
		return ResultOK
	}

	switch {
	case Is(err, ErrBusy):
		return ResultBusy
	case Is(err, ErrOutOfRange):
		return ResultOutOfRange
	case Is(err, ErrDeviceNotDetected):
		return ResultNotPresent
	default:
		return ResultError
	}
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewUnknownField creates an unknown-field error with context.
func NewUnknownField(name string) error {
	return fmt.Errorf("%s '%s': %w", "field", name, ErrUnknownField)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// NewInvalidValue creates an invalid value error.
func NewInvalidValue(field string, value interface{}, reason string) error {
	return fmt.Errorf("invalid %s '%v': %s: %w", field, value, reason, ErrInvalidValue)
}

// ============================================================================
// Validation Errors Collection
// ============================================================================

// ValidationErrors collects multiple validation errors.
type ValidationErrors struct {
	Errors []error
}

// NewValidationErrors creates a new ValidationErrors collector.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds an error to the collection.
func (v *ValidationErrors) Add(err error) {
	if err != nil {
		v.Errors = append(v.Errors, err)
	}
}

// AddField adds a field validation error.
func (v *ValidationErrors) AddField(field, reason string) {
	v.Errors = append(v.Errors, NewValidation(field, reason))
}

// HasErrors returns true if there are any errors.
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface.
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return ""
	}
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}

	msg := fmt.Sprintf("validation failed with %d errors:", len(v.Errors))
	for _, err := range v.Errors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

// Err returns nil if no errors, otherwise returns the ValidationErrors.
func (v *ValidationErrors) Err() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v
}

// Unwrap returns the first error for errors.Is/As support.
func (v *ValidationErrors) Unwrap() error {
	if len(v.Errors) == 0 {
		return nil
	}
	return v.Errors[0]
}
