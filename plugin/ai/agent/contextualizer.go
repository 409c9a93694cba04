package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/hrygo/docinsight/plugin/ai"
	"github.com/hrygo/docinsight/plugin/ai/timeout"
)

// Tier names the path that produced a contextualizer or synthesizer result.
type Tier string

const (
	TierStructured   Tier = "structured"
	TierPlain        Tier = "plain"
	TierVerbatim     Tier = "verbatim"
	TierShortCircuit Tier = "short_circuit"
)

// Contextualizer rewrites follow-up messages into standalone questions.
type Contextualizer struct {
	llm         ai.LLMService
	callTimeout time.Duration
}

// NewContextualizer creates a Contextualizer backed by llm.
func NewContextualizer(llm ai.LLMService) *Contextualizer {
	return &Contextualizer{llm: llm, callTimeout: timeout.LLMCallTimeout}
}

// Contextualize returns a standalone form of message. It never fails: when
// both rewrite tiers fail the message is used verbatim.
func (c *Contextualizer) Contextualize(ctx context.Context, history []ai.Message, message string) (string, Tier) {
	if len(history) == 0 {
		return message, TierShortCircuit
	}

	tier := TierStructured
	res := OrElse(c.structured(ctx, history, message), func() Result[string] {
		tier = TierPlain
		return c.plain(ctx, history, message)
	})
	if res.OK() {
		if q := cleanQuestion(res.Value); q != "" {
			return q, tier
		}
	}

	slog.Warn("contextualization unavailable, using message verbatim",
		"tier", string(tier),
		"outcome", res.Outcome.String(),
		"error", res.Err)
	return message, TierVerbatim
}

func (c *Contextualizer) structured(ctx context.Context, history []ai.Message, message string) Result[string] {
	messages := ai.FormatMessages(ContextualizeSystemPrompt, message, history)
	res := callText(ctx, c.callTimeout, func(cctx context.Context) (string, error) {
		return c.llm.Chat(cctx, messages)
	})
	logTierFailure("contextualize", TierStructured, res)
	return res
}

func (c *Contextualizer) plain(ctx context.Context, history []ai.Message, message string) Result[string] {
	prompt := PlainContextualizePrompt(history, message)
	res := callText(ctx, c.callTimeout, func(cctx context.Context) (string, error) {
		return c.llm.Complete(cctx, prompt)
	})
	logTierFailure("contextualize", TierPlain, res)
	return res
}

func logTierFailure(step string, tier Tier, res Result[string]) {
	if res.OK() {
		return
	}
	attrs := []any{
		"step", step,
		"tier", string(tier),
		"outcome", res.Outcome.String(),
		"network", IsNetworkError(res.Err),
		"error", res.Err,
	}
	if c := ClassifyError(res.Err); c != nil && c.StatusCode != 0 {
		attrs = append(attrs, "status", c.StatusCode)
	}
	slog.Warn("capability call failed", attrs...)
}
