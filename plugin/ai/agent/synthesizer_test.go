package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/docinsight/plugin/ai"
)

func skyRequest() SynthesisRequest {
	return SynthesisRequest{
		Message: "What color is the sky?",
		History: []ai.Message{ai.UserMessage("Summarize")},
		Context: "--- Content from a.txt ---\nThe sky is blue.",
		Task:    "Summarize",
	}
}

func TestSynthesizer_BlankContextRefuses(t *testing.T) {
	llm := new(MockLLM)
	req := skyRequest()
	req.Context = " \n\n "

	answer, tier, err := NewSynthesizer(llm).Synthesize(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, RefusalPhrase, answer)
	assert.Equal(t, TierShortCircuit, tier)
	llm.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestSynthesizer_Structured(t *testing.T) {
	llm := new(MockLLM)
	req := skyRequest()
	llm.On("Chat", mock.Anything, mock.MatchedBy(func(msgs []ai.Message) bool {
		return len(msgs) == 3 &&
			msgs[0].Role == "system" &&
			strings.Contains(msgs[0].Content, "Context:\n"+req.Context) &&
			strings.Contains(msgs[0].Content, "Task:\nSummarize") &&
			msgs[1].Content == "Summarize" &&
			msgs[2].Role == "user" && msgs[2].Content == req.Message
	})).Return("The sky is blue.", nil)

	answer, tier, err := NewSynthesizer(llm).Synthesize(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "The sky is blue.", answer)
	assert.Equal(t, TierStructured, tier)
	llm.AssertExpectations(t)
}

func TestSynthesizer_NormalizesRefusal(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).
		Return("Unfortunately I don't know based on the provided documents.", nil)

	req := skyRequest()
	req.Message = "Who is the CEO?"
	answer, _, err := NewSynthesizer(llm).Synthesize(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, RefusalPhrase, answer)
}

func TestSynthesizer_FallsBackToPlainPrompt(t *testing.T) {
	llm := new(MockLLM)
	req := skyRequest()
	llm.On("Chat", mock.Anything, mock.Anything).
		Return("", &openai.APIError{HTTPStatusCode: http.StatusServiceUnavailable})
	llm.On("Complete", mock.Anything, PlainQAPrompt(req.Task, req.Context, req.History, req.Message)).
		Return("Blue.", nil)

	answer, tier, err := NewSynthesizer(llm).Synthesize(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "Blue.", answer)
	assert.Equal(t, TierPlain, tier)
	llm.AssertExpectations(t)
}

func TestSynthesizer_UnavailableWhenBothTiersFail(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("dial tcp: i/o timeout"))
	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("dial tcp: i/o timeout"))

	answer, tier, err := NewSynthesizer(llm).Synthesize(context.Background(), skyRequest())

	assert.Empty(t, answer)
	assert.Equal(t, TierPlain, tier)
	assert.ErrorIs(t, err, ErrSynthesisUnavailable)
}

func TestSynthesizer_PermanentErrorIsUnavailableWithoutFallback(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).
		Return("", &openai.APIError{HTTPStatusCode: http.StatusUnauthorized})

	_, tier, err := NewSynthesizer(llm).Synthesize(context.Background(), skyRequest())

	assert.ErrorIs(t, err, ErrSynthesisUnavailable)
	assert.Equal(t, TierStructured, tier)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestSynthesizer_CanceledContext(t *testing.T) {
	llm := new(MockLLM)
	llm.On("Chat", mock.Anything, mock.Anything).Return("", context.Canceled)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewSynthesizer(llm).Synthesize(ctx, skyRequest())

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSynthesisUnavailable)
	llm.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
