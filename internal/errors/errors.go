// Package errors provides centralized error definitions and error handling
// utilities for the Parley codebase. It defines domain-specific errors,
// semantic error types, error constructors with context wrapping, and error
// classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - MotionError: errors related to the motion store and its lifecycle
//   - GitError: errors related to git operations (refs, notes, branches, merges)
//   - DelegationError: errors related to delegation graph resolution
//   - TallyError: errors related to vote casting and tallying
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewMotionError("failed to load motion", errors.ErrMotionNotFound)
//
//	// Semantic error
//	err := errors.NewNotFoundError("motion", "M1a2b3c4d5e6f")
//
//	// With context wrapping
//	err := errors.NewGitError("update-ref failed", baseErr).WithRef("refs/vote/M1/alice")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrDelegationCycle) { ... }
//
//	// Check for error types
//	var gitErr *errors.GitError
//	if errors.As(err, &gitErr) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Motion-related sentinel errors
var (
	// ErrMotionNotFound indicates that a motion could not be found.
	ErrMotionNotFound = New("motion not found")
	// ErrMotionExists indicates that a motion with the same ID already exists.
	ErrMotionExists = New("motion already exists")
	// ErrMotionClosed indicates that the motion no longer accepts the operation.
	ErrMotionClosed = New("motion is closed")
	// ErrInvalidTransition indicates an illegal motion status transition.
	ErrInvalidTransition = New("invalid status transition")
	// ErrMotionLocked indicates that a motion is locked by another writer.
	ErrMotionLocked = New("motion is locked")
	// ErrLockNotHeld indicates a release of a lock the caller does not hold.
	ErrLockNotHeld = New("lock not held")
)

// Delegation-related sentinel errors
var (
	// ErrDelegationCycle indicates that a delegation chain loops back on itself.
	ErrDelegationCycle = New("delegation cycle detected")
	// ErrDelegationDepthExceeded indicates a delegation chain longer than the
	// configured maximum depth.
	ErrDelegationDepthExceeded = New("delegation depth exceeded")
	// ErrDelegationNotFound indicates that a delegation edge could not be found.
	ErrDelegationNotFound = New("delegation not found")
)

// Vote- and tally-related sentinel errors
var (
	// ErrDuplicateVote indicates that the voter already has a ballot on the motion.
	ErrDuplicateVote = New("voter has already voted on this motion")
	// ErrInvalidVoteValue indicates a vote value outside for/against/abstain.
	ErrInvalidVoteValue = New("invalid vote value")
	// ErrWeightOutOfRange indicates a vote weight outside the allowed bounds.
	ErrWeightOutOfRange = New("vote weight out of range")
)

// Git-related sentinel errors
var (
	// ErrNotGitRepository indicates that the directory is not a git repository.
	ErrNotGitRepository = New("not a git repository")
	// ErrRefNotFound indicates that a ref does not exist.
	ErrRefNotFound = New("ref not found")
	// ErrRefExists indicates that a ref already exists.
	ErrRefExists = New("ref already exists")
	// ErrBranchNotFound indicates that a branch could not be found.
	ErrBranchNotFound = New("branch not found")
	// ErrBranchExists indicates that a branch already exists.
	ErrBranchExists = New("branch already exists")
	// ErrMergeConflict indicates that a merge conflict occurred.
	ErrMergeConflict = New("merge conflict")
	// ErrNoteMalformed indicates a note payload that could not be parsed.
	ErrNoteMalformed = New("malformed note payload")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrOperationFailed indicates a general operation failure.
	ErrOperationFailed = New("operation failed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// ParleyError is the base interface for all Parley errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type ParleyError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// MotionError represents errors related to the motion store.
//
// Example:
//
//	err := errors.NewMotionError("failed to load motion", errors.ErrMotionNotFound)
//	err = err.WithMotion("M1a2b3c4d5e6f")
type MotionError struct {
	baseError
	MotionID string
	Status   string
}

// NewMotionError creates a new MotionError.
func NewMotionError(message string, cause error) *MotionError {
	return &MotionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithMotion adds a motion ID to the error context.
func (e *MotionError) WithMotion(id string) *MotionError {
	e.MotionID = id
	return e
}

// WithStatus adds the motion status to the error context.
func (e *MotionError) WithStatus(status string) *MotionError {
	e.Status = status
	return e
}

// WithSeverity sets the error severity.
func (e *MotionError) WithSeverity(s Severity) *MotionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *MotionError) Error() string {
	var parts []string
	if e.MotionID != "" {
		parts = append(parts, fmt.Sprintf("motion=%s", e.MotionID))
	}
	if e.Status != "" {
		parts = append(parts, fmt.Sprintf("status=%s", e.Status))
	}

	prefix := "motion error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("motion error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *MotionError) Is(target error) bool {
	if _, ok := target.(*MotionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// GitError represents errors related to git operations.
//
// Example:
//
//	err := errors.NewGitError("failed to update ref", errors.ErrRefExists)
//	err = err.WithRef("refs/vote/M1/alice/ab12").WithGitOutput(out)
type GitError struct {
	baseError
	Ref        string
	Branch     string
	Repository string
	GitOutput  string // Captured git command output
}

// NewGitError creates a new GitError.
func NewGitError(message string, cause error) *GitError {
	return &GitError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithRef adds a ref name to the error context.
func (e *GitError) WithRef(ref string) *GitError {
	e.Ref = ref
	return e
}

// WithBranch adds a branch name to the error context.
func (e *GitError) WithBranch(branch string) *GitError {
	e.Branch = branch
	return e
}

// WithRepository adds a repository path to the error context.
func (e *GitError) WithRepository(path string) *GitError {
	e.Repository = path
	return e
}

// WithGitOutput adds git command output to the error context.
func (e *GitError) WithGitOutput(output string) *GitError {
	e.GitOutput = output
	return e
}

// WithSeverity sets the error severity.
func (e *GitError) WithSeverity(s Severity) *GitError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *GitError) WithRetryable(r bool) *GitError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *GitError) Error() string {
	var parts []string
	if e.Ref != "" {
		parts = append(parts, fmt.Sprintf("ref=%s", e.Ref))
	}
	if e.Branch != "" {
		parts = append(parts, fmt.Sprintf("branch=%s", e.Branch))
	}
	if e.Repository != "" {
		parts = append(parts, fmt.Sprintf("repo=%s", e.Repository))
	}

	prefix := "git error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("git error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *GitError) Is(target error) bool {
	if _, ok := target.(*GitError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DelegationError represents errors from delegation graph resolution.
//
// Example:
//
//	err := errors.NewDelegationError("resolution failed", errors.ErrDelegationCycle)
//	err = err.WithVoter("alice@example.com").WithChain([]string{"alice", "bob", "alice"})
type DelegationError struct {
	baseError
	Voter string
	Chain []string
}

// NewDelegationError creates a new DelegationError.
func NewDelegationError(message string, cause error) *DelegationError {
	return &DelegationError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithVoter adds the originating voter to the error context.
func (e *DelegationError) WithVoter(voter string) *DelegationError {
	e.Voter = voter
	return e
}

// WithChain adds the partial delegation chain to the error context.
func (e *DelegationError) WithChain(chain []string) *DelegationError {
	e.Chain = chain
	return e
}

// WithSeverity sets the error severity.
func (e *DelegationError) WithSeverity(s Severity) *DelegationError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *DelegationError) Error() string {
	var parts []string
	if e.Voter != "" {
		parts = append(parts, fmt.Sprintf("voter=%s", e.Voter))
	}
	if len(e.Chain) > 0 {
		parts = append(parts, fmt.Sprintf("chain=%s", strings.Join(e.Chain, "->")))
	}

	prefix := "delegation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("delegation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *DelegationError) Is(target error) bool {
	if _, ok := target.(*DelegationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// TallyError represents errors related to vote casting and tallying.
type TallyError struct {
	baseError
	MotionID string
	Voter    string
}

// NewTallyError creates a new TallyError.
func NewTallyError(message string, cause error) *TallyError {
	return &TallyError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithMotion adds a motion ID to the error context.
func (e *TallyError) WithMotion(id string) *TallyError {
	e.MotionID = id
	return e
}

// WithVoter adds the voter to the error context.
func (e *TallyError) WithVoter(voter string) *TallyError {
	e.Voter = voter
	return e
}

// WithSeverity sets the error severity.
func (e *TallyError) WithSeverity(s Severity) *TallyError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *TallyError) Error() string {
	var parts []string
	if e.MotionID != "" {
		parts = append(parts, fmt.Sprintf("motion=%s", e.MotionID))
	}
	if e.Voter != "" {
		parts = append(parts, fmt.Sprintf("voter=%s", e.Voter))
	}

	prefix := "tally error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("tally error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *TallyError) Is(target error) bool {
	if _, ok := target.(*TallyError); ok {
		return true
	}
	return e.baseError.Is(target)
}
