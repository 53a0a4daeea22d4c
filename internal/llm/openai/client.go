package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
)

const (
	// GeminiBaseURL is Google's OpenAI-compatible endpoint
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	// OllamaBaseURL is the OpenAI-compatible endpoint of a local Ollama
	OllamaBaseURL = "http://localhost:11434/v1"
)

// Provider implements the unified LLMProvider interface for OpenAI and
// OpenAI-compatible APIs
type Provider struct {
	name   string
	client *openai.Client
	config shared.Config
}

// NewProvider creates a new OpenAI provider. name is what the provider
// reports in logs and metrics ("openai", "gemini", "ollama").
func NewProvider(name string, cfg shared.Config) (*Provider, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model is required", name)
	}

	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: timeout}

	return &Provider{
		name:   name,
		client: openai.NewClientWithConfig(openaiConfig),
		config: cfg,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string { return p.name }

// Complete performs a completion request
func (p *Provider) Complete(ctx context.Context, req *shared.CompletionRequest) (*shared.CompletionResponse, error) {
	if req != nil {
		p.applyDefaults(req)
	}
	if err := shared.ValidateCompletionRequest(req); err != nil {
		return nil, err
	}

	openaiReq, err := ToOpenAIRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to convert request: %w", err)
	}

	resp, err := p.client.CreateChatCompletion(ctx, *openaiReq)
	if err != nil {
		return nil, NormalizeOpenAIError(err)
	}

	return FromOpenAIResponse(resp), nil
}

func (p *Provider) applyDefaults(req *shared.CompletionRequest) {
	if req.Options.Model == "" {
		req.Options.Model = p.config.Model
	}
	if req.Options.Temperature == 0 {
		req.Options.Temperature = p.config.Temperature
	}
	if req.Options.MaxTokens == 0 {
		req.Options.MaxTokens = p.config.MaxTokens
	}
}

// NormalizeOpenAIError converts OpenAI errors to normalized ProviderError
func NormalizeOpenAIError(err error) *shared.ProviderError {
	if err == nil {
		return nil
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &shared.ProviderError{
			Code:       shared.CodeForStatus(apiErr.HTTPStatusCode),
			Message:    apiErr.Message,
			HTTPStatus: apiErr.HTTPStatusCode,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &shared.ProviderError{
			Code:       shared.CodeForStatus(reqErr.HTTPStatusCode),
			Message:    reqErr.Error(),
			HTTPStatus: reqErr.HTTPStatusCode,
		}
	}

	return shared.NormalizeError(err)
}
