package errors

import (
	"errors"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates that a resource could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("motion", "M1a2b3c4d5e6f")
//	fmt.Println(err) // "motion not found: M1a2b3c4d5e6f"
type NotFoundError struct {
	baseError
	Resource string
	ID       string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found", resource),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Resource: resource,
		ID:       id,
	}
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	switch e.Resource {
	case "motion":
		return errors.Is(target, ErrMotionNotFound)
	case "ref":
		return errors.Is(target, ErrRefNotFound)
	case "branch":
		return errors.Is(target, ErrBranchNotFound)
	case "delegation":
		return errors.Is(target, ErrDelegationNotFound)
	}
	return false
}

// AlreadyExistsError indicates that a resource already exists.
type AlreadyExistsError struct {
	baseError
	Resource string
	ID       string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resource, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s already exists", resource),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Resource: resource,
		ID:       id,
	}
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s already exists: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	switch e.Resource {
	case "motion":
		return errors.Is(target, ErrMotionExists)
	case "ref":
		return errors.Is(target, ErrRefExists)
	case "branch":
		return errors.Is(target, ErrBranchExists)
	case "vote":
		return errors.Is(target, ErrDuplicateVote)
	}
	return false
}

// ValidationError indicates that input validation failed.
//
// Example:
//
//	err := errors.NewValidationError("weight", "must be between 0 and 10")
type ValidationError struct {
	baseError
	Field  string
	Reason string
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    fmt.Sprintf("validation failed for %s: %s", field, reason),
			cause:      ErrInvalidInput,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		Field:  field,
		Reason: reason,
	}
}

// WithCause replaces the default ErrInvalidInput cause with a more
// specific sentinel, such as ErrWeightOutOfRange.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return errors.Is(target, ErrInvalidInput) || e.baseError.Is(target)
}

// TimeoutError indicates that an operation exceeded its time budget.
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    fmt.Sprintf("%s timed out after %s", operation, duration),
			cause:      ErrTimeout,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Duration)
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return errors.Is(target, ErrTimeout)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable reports whether the error is transient and the operation
// may succeed on retry. Unknown error types are considered non-retryable.
func IsRetryable(err error) bool {
	var pe ParleyError
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}
	return errors.Is(err, ErrTimeout)
}

// IsUserFacing reports whether the error message is safe to display to
// end users. Unknown error types are considered internal.
func IsUserFacing(err error) bool {
	var pe ParleyError
	if errors.As(err, &pe) {
		return pe.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity of the error, defaulting to
// SeverityError for unknown error types.
func GetSeverity(err error) Severity {
	var pe ParleyError
	if errors.As(err, &pe) {
		return pe.Severity()
	}
	return SeverityError
}

// IsNotFound reports whether the error indicates a missing resource.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return true
	}
	return errors.Is(err, ErrMotionNotFound) ||
		errors.Is(err, ErrRefNotFound) ||
		errors.Is(err, ErrBranchNotFound) ||
		errors.Is(err, ErrDelegationNotFound)
}
