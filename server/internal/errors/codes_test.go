package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAIError_Error(t *testing.T) {
	err := InvalidFileType(".exe")
	assert.Equal(t, "[INVALID_FILE_TYPE] invalid file type: .exe", err.Error())

	cause := stderrors.New("dial tcp: refused")
	wrapped := IndexingError("failed to build index", cause)
	assert.Equal(t, "[INDEXING_ERROR] failed to build index: dial tcp: refused", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("turn: %w", SessionNotFound("abc"))
	assert.True(t, IsCode(err, ErrCodeSessionNotFound))
	assert.False(t, IsCode(err, ErrCodeIndexingError))
	assert.Equal(t, ErrCodeSessionNotFound, GetCodeFromError(err, ErrCodeInvalidArgument))
	assert.Equal(t, ErrCodeInvalidArgument, GetCodeFromError(stderrors.New("plain"), ErrCodeInvalidArgument))
}

func TestIsClientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid argument", InvalidArgument("task is required"), true},
		{"invalid file type", InvalidFileType(".png"), true},
		{"no text", NoExtractableText(), true},
		{"session not found", SessionNotFound("x"), true},
		{"rate limited", RateLimitExceeded("slow down"), true},
		{"indexing", IndexingError("embed", nil), false},
		{"synthesis", SynthesisUnavailable(nil), false},
		{"canceled", ContextCanceled(nil), false},
		{"plain", stderrors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientError(tt.err))
		})
	}
}

func TestWithContext(t *testing.T) {
	err := SessionNotFound("s1").WithContext("operation", "turn")
	assert.Equal(t, "s1", err.Context["session_id"])
	assert.Equal(t, "turn", err.Context["operation"])
}
