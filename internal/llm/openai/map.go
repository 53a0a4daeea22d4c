package openai

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
)

// ToOpenAIRequest converts a shared CompletionRequest to OpenAI format
func ToOpenAIRequest(req *shared.CompletionRequest) (*openai.ChatCompletionRequest, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)

	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	for _, m := range req.Messages {
		msg := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}

		if len(m.ToolCalls) > 0 {
			toolCalls := make([]openai.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				args, err := encodeArguments(tc.Arguments)
				if err != nil {
					return nil, fmt.Errorf("tool call %s: %w", tc.Name, err)
				}
				toolCalls[i] = openai.ToolCall{
					ID:   tc.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      tc.Name,
						Arguments: args,
					},
				}
			}
			msg.ToolCalls = toolCalls
		}

		if m.Role == shared.RoleTool {
			msg.ToolCallID = m.ToolCallID
			msg.Name = m.Name
		}

		msgs = append(msgs, msg)
	}

	o := req.Options
	openaiReq := openai.ChatCompletionRequest{
		Model:       o.Model,
		Messages:    msgs,
		MaxTokens:   o.MaxTokens,
		Temperature: o.Temperature,
		Stop:        o.Stop,
	}

	if len(o.Tools) > 0 {
		tools := make([]openai.Tool, len(o.Tools))
		for i, t := range o.Tools {
			tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.JSONSchema,
				},
			}
		}
		openaiReq.Tools = tools
		openaiReq.ToolChoice = "auto"
		if o.ToolChoice == shared.ToolChoiceNone {
			openaiReq.ToolChoice = shared.ToolChoiceNone
		}
	}

	return &openaiReq, nil
}

// FromOpenAIResponse converts an OpenAI response to shared format
func FromOpenAIResponse(resp openai.ChatCompletionResponse) *shared.CompletionResponse {
	out := &shared.CompletionResponse{
		Usage: shared.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if len(resp.Choices) == 0 {
		return out
	}

	choice := resp.Choices[0]
	out.Content = choice.Message.Content
	out.StopReason = normalizeStopReason(choice.FinishReason)

	for i, tc := range choice.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			// some OpenAI-compatible backends omit ids
			id = fmt.Sprintf("call_%d", i)
		}
		out.ToolCalls = append(out.ToolCalls, shared.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: decodeArguments(tc.Function.Arguments),
		})
	}
	if len(out.ToolCalls) > 0 {
		out.StopReason = "tool"
	}

	return out
}

func normalizeStopReason(r openai.FinishReason) string {
	switch r {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return "tool"
	case openai.FinishReasonLength:
		return "length"
	case "":
		return ""
	default:
		return "stop"
	}
}

func encodeArguments(args map[string]any) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments: %w", err)
	}
	return string(data), nil
}

// decodeArguments never fails: unparsable arguments are handed to the tool
// under "_raw" so it can report a useful error to the model.
func decodeArguments(raw string) map[string]any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}
	}
	args := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{"_raw": raw}
	}
	return args
}
