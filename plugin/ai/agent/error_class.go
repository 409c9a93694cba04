// Package agent implements the language-model steps of a conversation turn:
// rewriting a follow-up into a standalone question and synthesizing a
// grounded answer, each with an explicit fallback tier.
package agent

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorClass represents the category of a capability error for fallback decisions.
type ErrorClass int

const (
	// ErrorClassTransient indicates the call may succeed in another form or later.
	// Examples: network timeout, rate limiting, 5xx, rejected message layout
	ErrorClassTransient ErrorClass = iota

	// ErrorClassPermanent indicates no fallback can succeed.
	// Examples: canceled request, invalid credentials
	ErrorClassPermanent
)

// String returns the string representation of ErrorClass.
func (e ErrorClass) String() string {
	switch e {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ClassifiedError wraps an error with its classification.
type ClassifiedError struct {
	Class      ErrorClass
	Original   error
	StatusCode int // HTTP status reported by the provider, 0 if none
}

// Error returns a formatted error message.
func (c *ClassifiedError) Error() string {
	if c.Original == nil {
		return fmt.Sprintf("classified error: class=%s", c.Class)
	}
	return fmt.Sprintf("%s: %v", c.Class, c.Original)
}

// Unwrap returns the original error for errors.Is/As.
func (c *ClassifiedError) Unwrap() error {
	return c.Original
}

// IsTransient returns true if a fallback tier is worth trying.
func (c *ClassifiedError) IsTransient() bool {
	return c.Class == ErrorClassTransient
}

// ClassifyError analyzes a capability error.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	// 1. The caller went away.
	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{Class: ErrorClassPermanent, Original: err}
	}

	// 2. Provider status codes.
	if status := statusCode(err); status != 0 {
		class := ErrorClassTransient
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			class = ErrorClassPermanent
		}
		return &ClassifiedError{Class: class, Original: err, StatusCode: status}
	}

	// 3. Network and timeout failures, and anything unrecognised, are worth
	// another attempt in the simpler form.
	return &ClassifiedError{Class: ErrorClassTransient, Original: err}
}

func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// IsNetworkError checks if an error is network-related.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errMsg := strings.ToLower(err.Error())
	networkPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no such host",
		"dial tcp",
		"eof",
	}

	for _, pattern := range networkPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}
