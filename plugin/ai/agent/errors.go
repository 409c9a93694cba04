package agent

import "errors"

var (
	// ErrSynthesisUnavailable means every synthesis tier failed and no answer was produced.
	ErrSynthesisUnavailable = errors.New("synthesis unavailable")

	// ErrEmptyResponse means the model returned only whitespace.
	ErrEmptyResponse = errors.New("empty model response")
)
