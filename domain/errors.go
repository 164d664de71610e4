package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Not-found and state-conflict errors. The messages of the technical-test
// errors are returned to respondents verbatim.
var (
	ErrTestNotFound      = errors.New("Test not found")
	ErrAlreadySubmitted  = errors.New("Test already submitted")
	ErrLinkExpired       = errors.New("Test link has expired")
	ErrNoScorecards      = errors.New("no completed scorecards found for this job")
	ErrJobNotFound       = errors.New("job not found")
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrTemplateNotFound  = errors.New("template not found")
	ErrScorecardNotFound = errors.New("scorecard not found")
	ErrAlreadyCompleted  = errors.New("Scorecard already completed")
	ErrSummaryNotFound   = errors.New("summary not found")
)

// ValidationError reports malformed input before any computation starts.
type ValidationError struct {
	Entity string
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

// AddError appends a validation message.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors reports whether any message was added.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates an empty ValidationError for entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{Entity: entity, Errors: make([]string, 0)}
}

// StoreError wraps a failure of the record store. Its details are logged and
// never shown to callers.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error: op=%s, err=%v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err for operation op.
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsRetryable reports whether a failed operation may safely be retried by
// the caller. Only store failures are.
func IsRetryable(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
