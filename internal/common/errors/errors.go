// internal/common/errors/errors.go

// Package errors provides the standardized error taxonomy for the
// feedback pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Retrieval layer
	ErrCodeFeedbackNotFound    ErrorCode = "FEEDBACK_NOT_FOUND"
	ErrCodeResultsCorrupted    ErrorCode = "RESULTS_CORRUPTED"
	ErrCodeCacheUnavailable    ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeDatabaseQueryFailed ErrorCode = "DATABASE_QUERY_FAILED"

	// Intake layer
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeContentRejected      ErrorCode = "CONTENT_REJECTED"
	ErrCodeInstructionsRejected ErrorCode = "INSTRUCTIONS_REJECTED"
	ErrCodeDatabaseWriteFailed  ErrorCode = "DATABASE_WRITE_FAILED"
	ErrCodeQueueSendFailed      ErrorCode = "QUEUE_SEND_FAILED"

	// Analysis layer
	ErrCodeAnalysisAPITimeout ErrorCode = "ANALYSIS_API_TIMEOUT"
	ErrCodeAnalysisFailed     ErrorCode = "ANALYSIS_FAILED"
	ErrCodeGuardrailFailed    ErrorCode = "GUARDRAIL_CHECK_FAILED"
)

// PipelineError carries a code, an operator-facing message, and a
// retryability hint. It is the structured form services log and workers
// use to decide whether to retry.
type PipelineError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
}

func (e *PipelineError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.cause
}

// New creates a PipelineError without a cause.
func New(code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Code:      code,
		Message:   message,
		Retryable: isRetryable(code),
		Timestamp: time.Now().UTC(),
	}
}

// Wrap creates a PipelineError around an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *PipelineError {
	e := New(code, message)
	e.cause = cause
	return e
}

// Transient infrastructure faults are retryable; rejections and corrupted
// payloads are not.
func isRetryable(code ErrorCode) bool {
	switch code {
	case ErrCodeDatabaseQueryFailed,
		ErrCodeDatabaseWriteFailed,
		ErrCodeQueueSendFailed,
		ErrCodeAnalysisAPITimeout,
		ErrCodeCacheUnavailable:
		return true
	}
	return false
}
