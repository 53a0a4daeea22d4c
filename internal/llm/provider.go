// Package llm wires chat-model providers from configuration.
package llm

import (
	"context"
	"fmt"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/llm/anthropic"
	"github.com/Kartavya-AI/ai-bot/internal/llm/openai"
	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
	"github.com/Kartavya-AI/ai-bot/internal/metrics"
)

// NewProvider creates the provider selected by cfg. Hosted providers fail
// fast when their API key is missing.
func NewProvider(cfg config.LLMConfig) (shared.LLMProvider, error) {
	sc := shared.Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}

	switch shared.ProviderType(cfg.Provider) {
	case shared.ProviderGemini:
		if sc.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is not set. Please set your Google API key")
		}
		if sc.BaseURL == "" {
			sc.BaseURL = openai.GeminiBaseURL
		}
		return openai.NewProvider(cfg.Provider, sc)
	case shared.ProviderOpenAI:
		if sc.APIKey == "" {
			return nil, fmt.Errorf("api key is required for the openai provider")
		}
		return openai.NewProvider(cfg.Provider, sc)
	case shared.ProviderOllama:
		if sc.BaseURL == "" {
			sc.BaseURL = openai.OllamaBaseURL
		}
		if sc.APIKey == "" {
			sc.APIKey = "ollama"
		}
		return openai.NewProvider(cfg.Provider, sc)
	case shared.ProviderAnthropic:
		return anthropic.NewProvider(sc)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// Instrument wraps p so every completion is counted in m.
func Instrument(p shared.LLMProvider, m *metrics.Collector) shared.LLMProvider {
	if m == nil {
		return p
	}
	return &instrumented{LLMProvider: p, metrics: m}
}

type instrumented struct {
	shared.LLMProvider
	metrics *metrics.Collector
}

func (i *instrumented) Complete(ctx context.Context, req *shared.CompletionRequest) (*shared.CompletionResponse, error) {
	resp, err := i.LLMProvider.Complete(ctx, req)
	if err != nil {
		i.metrics.ObserveLLM(i.Name(), false, 0, 0)
		return nil, err
	}
	i.metrics.ObserveLLM(i.Name(), true, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp, nil
}
