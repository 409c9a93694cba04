package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantClass  ErrorClass
		wantStatus int
	}{
		{"canceled", context.Canceled, ErrorClassPermanent, 0},
		{"wrapped canceled", fmt.Errorf("chat: %w", context.Canceled), ErrorClassPermanent, 0},
		{"deadline", context.DeadlineExceeded, ErrorClassTransient, 0},
		{"unauthorized", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized, Message: "bad key"}, ErrorClassPermanent, 401},
		{"forbidden", fmt.Errorf("wrap: %w", &openai.APIError{HTTPStatusCode: http.StatusForbidden}), ErrorClassPermanent, 403},
		{"server error", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError}, ErrorClassTransient, 500},
		{"bad request", &openai.APIError{HTTPStatusCode: http.StatusBadRequest}, ErrorClassTransient, 400},
		{"rate limited", &openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}, ErrorClassTransient, 429},
		{"unknown", errors.New("something odd"), ErrorClassTransient, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ClassifyError(tt.err)
			require.NotNil(t, c)
			assert.Equal(t, tt.wantClass, c.Class)
			assert.Equal(t, tt.wantStatus, c.StatusCode)
			assert.ErrorIs(t, c, tt.err)
		})
	}

	assert.Nil(t, ClassifyError(nil))
}

func TestClassifiedError_Error(t *testing.T) {
	c := &ClassifiedError{Class: ErrorClassTransient, Original: errors.New("boom")}
	assert.Equal(t, "transient: boom", c.Error())
	assert.True(t, c.IsTransient())

	empty := &ClassifiedError{Class: ErrorClassPermanent}
	assert.Equal(t, "classified error: class=permanent", empty.Error())
	assert.Equal(t, "unknown", ErrorClass(9).String())
}

func TestIsNetworkError(t *testing.T) {
	assert.False(t, IsNetworkError(nil))
	assert.True(t, IsNetworkError(errors.New("dial tcp 127.0.0.1:1: connection refused")))
	assert.True(t, IsNetworkError(errors.New("unexpected EOF")))
	assert.False(t, IsNetworkError(errors.New("invalid model")))
}
