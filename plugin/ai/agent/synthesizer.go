package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hrygo/docinsight/plugin/ai"
	"github.com/hrygo/docinsight/plugin/ai/timeout"
)

// SynthesisRequest carries everything an answer may draw on.
type SynthesisRequest struct {
	Message string       // the user's message as typed
	History []ai.Message // prior turns, current message excluded
	Context string       // retrieved passages
	Task    string       // the task stated at upload
}

// Synthesizer produces answers grounded in retrieved context.
type Synthesizer struct {
	llm         ai.LLMService
	callTimeout time.Duration
}

// NewSynthesizer creates a Synthesizer backed by llm.
func NewSynthesizer(llm ai.LLMService) *Synthesizer {
	return &Synthesizer{llm: llm, callTimeout: timeout.LLMCallTimeout}
}

// Synthesize answers req.Message from req.Context. Blank context yields
// RefusalPhrase without calling the model. When both tiers fail the error
// wraps ErrSynthesisUnavailable.
func (s *Synthesizer) Synthesize(ctx context.Context, req SynthesisRequest) (string, Tier, error) {
	if strings.TrimSpace(req.Context) == "" {
		return RefusalPhrase, TierShortCircuit, nil
	}

	tier := TierStructured
	res := OrElse(s.structured(ctx, req), func() Result[string] {
		tier = TierPlain
		return s.plain(ctx, req)
	})
	if !res.OK() {
		if err := ctx.Err(); err != nil {
			return "", tier, err
		}
		return "", tier, fmt.Errorf("%w: %s tier: %v", ErrSynthesisUnavailable, tier, res.Err)
	}
	return normalizeAnswer(res.Value), tier, nil
}

func (s *Synthesizer) structured(ctx context.Context, req SynthesisRequest) Result[string] {
	messages := ai.FormatMessages(QASystemPrompt(req.Task, req.Context), req.Message, req.History)
	res := callText(ctx, s.callTimeout, func(cctx context.Context) (string, error) {
		return s.llm.Chat(cctx, messages)
	})
	logTierFailure("synthesize", TierStructured, res)
	return res
}

func (s *Synthesizer) plain(ctx context.Context, req SynthesisRequest) Result[string] {
	prompt := PlainQAPrompt(req.Task, req.Context, req.History, req.Message)
	res := callText(ctx, s.callTimeout, func(cctx context.Context) (string, error) {
		return s.llm.Complete(cctx, prompt)
	})
	logTierFailure("synthesize", TierPlain, res)
	return res
}
