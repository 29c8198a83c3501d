// Package errors provides the standardized error taxonomy of the
// classification pipeline.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// ErrCodeMalformedRepresentative — a stored template's feature payload
	// cannot be decoded. Recovered locally: the template scores 0 and the
	// scan continues.
	ErrCodeMalformedRepresentative ErrorCode = "MALFORMED_REPRESENTATIVE"

	// ErrCodeDuplicateURL — the website already has a persisted record.
	// Recovered by returning the existing assignment unchanged.
	ErrCodeDuplicateURL ErrorCode = "DUPLICATE_URL"

	// ErrCodePersistenceFailure — the store could not complete a commit.
	// Surfaced to the caller as a failed classification.
	ErrCodePersistenceFailure ErrorCode = "PERSISTENCE_FAILURE"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeLockNotAcquired  ErrorCode = "LOCK_NOT_ACQUIRED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewMalformedRepresentativeError creates a non-retryable decode error
// for one template's stored features.
func NewMalformedRepresentativeError(templateID int64, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedRepresentative,
		Message:   "Stored template features cannot be decoded",
		Details:   fmt.Sprintf("templateId: %d, error: %s", templateID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateURLError creates a non-retryable duplicate-website error.
func NewDuplicateURLError(url string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateURL,
		Message:   "Website already classified",
		Details:   fmt.Sprintf("url: %s", url),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPersistenceFailureError creates a retryable storage error.
func NewPersistenceFailureError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePersistenceFailure,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", op, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionFailedError creates a retryable feature-extraction error.
func NewExtractionFailedError(url string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "Feature extraction failed",
		Details:   fmt.Sprintf("url: %s, error: %s", url, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError creates a non-retryable lookup error.
func NewTemplateNotFoundError(templateID int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found",
		Details:   fmt.Sprintf("templateId: %d", templateID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLockNotAcquiredError creates a retryable lock contention error.
func NewLockNotAcquiredError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLockNotAcquired,
		Message:   "Classification lock not acquired",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the ErrorCode from an error chain, or "" when the chain
// carries no StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
