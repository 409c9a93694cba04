package ai

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hrygo/docinsight/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	Embedding EmbeddingConfig
	LLM       LLMConfig
}

// EmbeddingConfig represents vector embedding configuration.
type EmbeddingConfig struct {
	Provider   string // openai, siliconflow, ollama, local
	Model      string // text-embedding-3-small
	Dimensions int    // 0 keeps the model's native size; local defaults to 512
	APIKey     string
	BaseURL    string
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // openai, deepseek, siliconflow, ollama
	Model       string // gpt-4o-mini
	APIKey      string
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.4
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{}

	cfg.Embedding = EmbeddingConfig{
		Provider:   p.AIEmbeddingProvider,
		Model:      p.AIEmbeddingModel,
		Dimensions: p.AIEmbeddingDimensions,
	}
	cfg.Embedding.APIKey, cfg.Embedding.BaseURL = providerEndpoint(p, p.AIEmbeddingProvider)

	cfg.LLM = LLMConfig{
		Provider:    p.AILLMProvider,
		Model:       p.AILLMModel,
		MaxTokens:   2048,
		Temperature: 0.4,
	}
	cfg.LLM.APIKey, cfg.LLM.BaseURL = providerEndpoint(p, p.AILLMProvider)

	return cfg
}

func providerEndpoint(p *profile.Profile, provider string) (apiKey, baseURL string) {
	switch provider {
	case "openai":
		return p.AIOpenAIAPIKey, p.AIOpenAIBaseURL
	case "siliconflow":
		return p.AISiliconFlowAPIKey, p.AISiliconFlowBaseURL
	case "deepseek":
		return p.AIDeepSeekAPIKey, p.AIDeepSeekBaseURL
	case "ollama":
		return "", ollamaOpenAIBaseURL(p.AIOllamaBaseURL)
	default:
		return "", ""
	}
}

// ollamaOpenAIBaseURL points at Ollama's OpenAI-compatible API.
func ollamaOpenAIBaseURL(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Embedding.Provider == "" {
		return errors.New("embedding provider is required")
	}
	if needsAPIKey(c.Embedding.Provider) && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding API key is required for provider %s", c.Embedding.Provider)
	}
	if c.Embedding.Provider != "local" && c.Embedding.Model == "" {
		return errors.New("embedding model is required")
	}

	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Provider == "local" {
		return errors.New("LLM provider local is not supported")
	}
	if needsAPIKey(c.LLM.Provider) && c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key is required for provider %s", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}

	return nil
}

func needsAPIKey(provider string) bool {
	return provider != "ollama" && provider != "local"
}
