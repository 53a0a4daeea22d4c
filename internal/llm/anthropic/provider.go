package anthropic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	json "github.com/goccy/go-json"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
)

const defaultMaxTokens = 4096

// Provider implements the unified LLMProvider interface for Anthropic
type Provider struct {
	client anthropic.Client
	config shared.Config
}

// NewProvider creates a new Anthropic provider
func NewProvider(cfg shared.Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("anthropic: model is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Provider{
		client: anthropic.NewClient(opts...),
		config: cfg,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string { return string(shared.ProviderAnthropic) }

// Complete performs a completion request
func (p *Provider) Complete(ctx context.Context, req *shared.CompletionRequest) (*shared.CompletionResponse, error) {
	if req != nil && req.Options.Model == "" {
		req.Options.Model = p.config.Model
	}
	if err := shared.ValidateCompletionRequest(req); err != nil {
		return nil, err
	}

	params, err := p.toParams(req)
	if err != nil {
		return nil, fmt.Errorf("failed to convert request: %w", err)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, normalizeError(err)
	}

	return fromMessage(resp), nil
}

func (p *Provider) toParams(req *shared.CompletionRequest) (anthropic.MessageNewParams, error) {
	maxTokens := req.Options.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Options.Model),
		MaxTokens: int64(maxTokens),
	}

	system := req.System
	msgs := make([]anthropic.MessageParam, 0, len(req.Messages))
	var pendingResults []anthropic.ContentBlockParamUnion

	flushResults := func() {
		if len(pendingResults) > 0 {
			msgs = append(msgs, anthropic.NewUserMessage(pendingResults...))
			pendingResults = nil
		}
	}

	for _, m := range req.Messages {
		switch m.Role {
		case shared.RoleSystem:
			// Anthropic only accepts a top-level system prompt
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case shared.RoleTool:
			// all results for one assistant turn travel in a single user message
			pendingResults = append(pendingResults, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, false))
		case shared.RoleAssistant:
			flushResults()
			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(tc.ID, args, tc.Name))
			}
			if len(blocks) > 0 {
				msgs = append(msgs, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			// a user turn right after tool results joins their message
			pendingResults = append(pendingResults, anthropic.NewTextBlock(m.Content))
			flushResults()
		}
	}
	flushResults()
	params.Messages = msgs

	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	temp := req.Options.Temperature
	if temp == 0 {
		temp = p.config.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}
	if len(req.Options.Stop) > 0 {
		params.StopSequences = req.Options.Stop
	}

	for _, t := range req.Options.Tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: t.JSONSchema["properties"],
		}
		if required, ok := t.JSONSchema["required"].([]string); ok {
			schema.Required = required
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: schema,
			},
		})
	}

	if req.Options.ToolChoice == shared.ToolChoiceNone && len(params.Tools) > 0 {
		params.ToolChoice = anthropic.ToolChoiceUnionParam{OfNone: &anthropic.ToolChoiceNoneParam{}}
	}

	return params, nil
}

func fromMessage(resp *anthropic.Message) *shared.CompletionResponse {
	out := &shared.CompletionResponse{
		Usage: shared.TokenUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			args := map[string]any{}
			if err := json.Unmarshal(block.Input, &args); err != nil {
				args = map[string]any{"_raw": string(block.Input)}
			}
			out.ToolCalls = append(out.ToolCalls, shared.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}

	switch resp.StopReason {
	case "tool_use":
		out.StopReason = "tool"
	case "max_tokens":
		out.StopReason = "length"
	default:
		out.StopReason = "stop"
	}
	return out
}

func normalizeError(err error) *shared.ProviderError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &shared.ProviderError{
			Code:       shared.CodeForStatus(apiErr.StatusCode),
			Message:    apiErr.Error(),
			HTTPStatus: apiErr.StatusCode,
		}
	}
	return shared.NormalizeError(err)
}
