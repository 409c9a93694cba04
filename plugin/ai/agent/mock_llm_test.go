package agent

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hrygo/docinsight/plugin/ai"
)

// MockLLM is a testify mock of ai.LLMService.
type MockLLM struct {
	mock.Mock
}

func (m *MockLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

func (m *MockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

var _ ai.LLMService = (*MockLLM)(nil)
