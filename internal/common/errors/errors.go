// Package errors provides standardized error handling for the compliance engine.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"

	ErrCodeSubmissionNotFound ErrorCode = "SUBMISSION_NOT_FOUND"
	ErrCodeCoupleNotFound     ErrorCode = "COUPLE_NOT_FOUND"
	ErrCodeRequirementUnknown ErrorCode = "REQUIREMENT_UNKNOWN"

	ErrCodeSchedulingConflict       ErrorCode = "SCHEDULING_CONFLICT"
	ErrCodeConcurrentUpdateConflict ErrorCode = "CONCURRENT_UPDATE_CONFLICT"

	ErrCodeDispatchFailed ErrorCode = "DISPATCH_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is makes errors.Is work against another StandardError with the same code.
func (e *StandardError) Is(target error) bool {
	var std *StandardError
	if errors.As(target, &std) {
		return e.Code == std.Code
	}
	return false
}

// CodeOf returns the error code of err, or empty when err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var std *StandardError
	if errors.As(err, &std) {
		return std.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable upload/payload validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Submission validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError creates a non-retryable state machine edge error.
func NewInvalidTransitionError(from, event string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTransition,
		Message:   "Transition not allowed for current status",
		Details:   fmt.Sprintf("status: %s, event: %s", from, event),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionNotFoundError creates a non-retryable lookup error.
func NewSubmissionNotFoundError(submissionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionNotFound,
		Message:   "Form submission not found",
		Details:   fmt.Sprintf("submissionId: %s", submissionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCoupleNotFoundError creates a non-retryable lookup error.
func NewCoupleNotFoundError(coupleID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCoupleNotFound,
		Message:   "Couple record not found",
		Details:   fmt.Sprintf("coupleId: %s", coupleID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequirementUnknownError creates a non-retryable catalog lookup error.
func NewRequirementUnknownError(documentType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRequirementUnknown,
		Message:   "Document type not present in the requirement catalog",
		Details:   fmt.Sprintf("documentType: %s", documentType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSchedulingConflictError flags an expired submission whose ceremony moved.
// Requires manual review rather than automatic resolution.
func NewSchedulingConflictError(submissionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSchedulingConflict,
		Message:   "Ceremony rescheduled after submission already expired",
		Details:   fmt.Sprintf("submissionId: %s", submissionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConcurrentUpdateConflictError signals a lost optimistic write.
// The caller must re-read and retry; nothing was overwritten.
func NewConcurrentUpdateConflictError(submissionID string, version int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeConcurrentUpdateConflict,
		Message:   "Submission was modified by another actor",
		Details:   fmt.Sprintf("submissionId: %s, staleVersion: %d", submissionID, version),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchFailedError creates a retryable notification delivery error.
func NewDispatchFailedError(templateKey string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("templateKey: %s, error: %s", templateKey, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDispatchFailed,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed:
		return 3 // Retryable technical errors

	default:
		return 0 // Business errors: no retry
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "VALIDATION"):
		return "TRACKER"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "UNKNOWN"):
		return "LOOKUP"
	case strings.Contains(codeStr, "CONFLICT"):
		return "CONCURRENCY"
	case strings.Contains(codeStr, "DISPATCH"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	default:
		return "OTHER"
	}
}
