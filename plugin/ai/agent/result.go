package agent

import (
	"context"
	"strings"
	"time"

	"github.com/hrygo/docinsight/plugin/ai/timeout"
)

// Outcome is the terminal state of one capability call.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeTransient
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeTransient:
		return "transient"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Result is the explicit success | transient | fatal value returned by every
// tier, so fallback chains are ordinary control flow at the call site.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// Succeeded wraps a value.
func Succeeded[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: OutcomeOK}
}

// Failed classifies err. A done parent context always makes the failure fatal.
func Failed[T any](ctx context.Context, err error) Result[T] {
	outcome := OutcomeFatal
	if ctx.Err() == nil && ClassifyError(err).IsTransient() {
		outcome = OutcomeTransient
	}
	return Result[T]{Outcome: outcome, Err: err}
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Outcome == OutcomeOK }

// OrElse runs fallback only when r failed transiently.
func OrElse[T any](r Result[T], fallback func() Result[T]) Result[T] {
	if r.Outcome != OutcomeTransient {
		return r
	}
	return fallback()
}

// callText runs one generation call under its own timeout and turns blank
// output into ErrEmptyResponse.
func callText(ctx context.Context, callTimeout time.Duration, fn func(context.Context) (string, error)) Result[string] {
	if callTimeout <= 0 {
		callTimeout = timeout.LLMCallTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	text, err := fn(cctx)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		return Failed[string](ctx, err)
	}
	return Succeeded(strings.TrimSpace(text))
}
