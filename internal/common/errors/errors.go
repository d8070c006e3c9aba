// Package errors provides standardized error handling for the assistant pipeline.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Question handling errors.
	ErrCodeClassificationError ErrorCode = "CLASSIFICATION_ERROR"

	// Upstream AI service errors.
	ErrCodeEmbeddingUnavailable  ErrorCode = "EMBEDDING_UNAVAILABLE"
	ErrCodeRetrievalUnavailable  ErrorCode = "RETRIEVAL_UNAVAILABLE"
	ErrCodeGenerationUnavailable ErrorCode = "GENERATION_UNAVAILABLE"
	ErrCodeGenerationTimeout     ErrorCode = "GENERATION_TIMEOUT"
	ErrCodeNoGroundingFound      ErrorCode = "NO_GROUNDING_FOUND"

	// Data access errors.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"

	// Internal bookkeeping errors.
	ErrCodeInternalInconsistency ErrorCode = "INTERNAL_INCONSISTENCY"
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

// NewClassificationError creates a non-retryable malformed-question error.
func NewClassificationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationError,
		Message:   "Question could not be classified",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEmbeddingUnavailableError creates a retryable embedding service error.
func NewEmbeddingUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEmbeddingUnavailable,
		Message:   "Embedding service unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRetrievalUnavailableError creates a retryable similarity search error.
func NewRetrievalUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalUnavailable,
		Message:   "Similarity search unreachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationUnavailableError creates a retryable generation service error.
func NewGenerationUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationUnavailable,
		Message:   "Generation service error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGenerationTimeoutError creates a retryable generation timeout error.
func NewGenerationTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeGenerationTimeout,
		Message:   "Generation call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoGroundingFoundError creates a non-retryable no-grounding error.
func NewNoGroundingFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoGroundingFound,
		Message:   "No usable grounding found for the question",
		Details:   details,
		Retryable: false,
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
func NewQueryExecutionFailedError(queryKind string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryKind: %s, error: %s", queryKind, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(queryKind string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("queryKind: %s", queryKind),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalInconsistencyError creates a non-retryable internal state error.
// Used for corrupted cache entries and similar bookkeeping surprises; the
// caller is expected to treat the affected state as absent, not to surface it.
func NewInternalInconsistencyError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternalInconsistency,
		Message:   "Internal state inconsistency",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the recommended extra attempt count per error code.
// Upstream calls are bounded to a single retry so one slow external service
// cannot stall the pipeline.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeEmbeddingUnavailable,
		ErrCodeRetrievalUnavailable,
		ErrCodeGenerationUnavailable,
		ErrCodeGenerationTimeout,
		ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeQueryTimeout:
		return 1

	default:
		return 0
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
	case strings.Contains(codeStr, "CLASSIFICATION"):
		return "CLASSIFICATION"
	case strings.Contains(codeStr, "EMBEDDING") || strings.Contains(codeStr, "RETRIEVAL") ||
		strings.Contains(codeStr, "GENERATION") || strings.Contains(codeStr, "GROUNDING"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	default:
		return "OTHER"
	}
}
