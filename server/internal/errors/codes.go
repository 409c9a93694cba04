// Package errors defines the coded errors surfaced by the conversation service.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for conversation operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeInvalidFileType indicates an upload with an unsupported extension.
	ErrCodeInvalidFileType ErrorCode = "INVALID_FILE_TYPE"
	// ErrCodeNoExtractableText indicates the uploaded documents yielded no text.
	ErrCodeNoExtractableText ErrorCode = "NO_EXTRACTABLE_TEXT"
	// ErrCodeIndexingError indicates extraction or embedding failed during ingestion.
	ErrCodeIndexingError ErrorCode = "INDEXING_ERROR"
	// ErrCodeSessionNotFound indicates the session id is unknown or evicted.
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	// ErrCodeSynthesisUnavailable indicates every answer generation tier failed.
	ErrCodeSynthesisUnavailable ErrorCode = "SYNTHESIS_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// AIError represents a structured error for conversation operations.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AIError) WithContext(key string, value any) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// InvalidFileType creates an invalid file type error for ext.
func InvalidFileType(ext string) *AIError {
	return &AIError{
		Code:    ErrCodeInvalidFileType,
		Message: fmt.Sprintf("invalid file type: %s", ext),
	}
}

// NoExtractableText creates a no extractable text error.
func NoExtractableText() *AIError {
	return &AIError{Code: ErrCodeNoExtractableText, Message: "no extractable text in uploaded files"}
}

// IndexingError creates an indexing error.
func IndexingError(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeIndexingError, Message: msg, Cause: cause}
}

// SessionNotFound creates a session not found error.
func SessionNotFound(sessionID string) *AIError {
	return &AIError{
		Code:    ErrCodeSessionNotFound,
		Message: "session not found",
		Context: map[string]any{"session_id": sessionID},
	}
}

// SynthesisUnavailable creates a synthesis unavailable error.
func SynthesisUnavailable(cause error) *AIError {
	return &AIError{Code: ErrCodeSynthesisUnavailable, Message: "answer synthesis unavailable", Cause: cause}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *AIError {
	return &AIError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// As finds the first AIError in err's chain.
func As(err error) (*AIError, bool) {
	var aiErr *AIError
	if stderrors.As(err, &aiErr) {
		return aiErr, true
	}
	return nil, false
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if aiErr, ok := As(err); ok {
		return aiErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if aiErr, ok := As(err); ok {
		return aiErr.Code
	}
	return defaultCode
}

// IsClientError reports whether err was caused by caller input. Client errors
// are surfaced verbatim and never retried.
func IsClientError(err error) bool {
	switch GetCodeFromError(err, "") {
	case ErrCodeInvalidArgument, ErrCodeInvalidFileType, ErrCodeNoExtractableText,
		ErrCodeSessionNotFound, ErrCodeRateLimitExceeded:
		return true
	}
	return false
}
