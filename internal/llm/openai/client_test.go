package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
)

func TestToOpenAIRequest(t *testing.T) {
	req := &shared.CompletionRequest{
		System: "You are a researcher",
		Messages: []shared.Message{
			{Role: shared.RoleUser, Content: "find kartavya"},
			{Role: shared.RoleAssistant, ToolCalls: []shared.ToolCall{
				{ID: "call_1", Name: "search_documents", Arguments: map[string]any{"query": "kartavya"}},
			}},
			{Role: shared.RoleTool, ToolCallID: "call_1", Name: "search_documents", Content: `{"hits":[]}`},
		},
		Options: shared.CompletionOptions{
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
			Tools: []shared.ToolDef{{
				Name:        "search_documents",
				Description: "search",
				JSONSchema:  map[string]any{"type": "object"},
			}},
		},
	}

	out, err := ToOpenAIRequest(req)
	require.NoError(t, err)

	require.Len(t, out.Messages, 4)
	assert.Equal(t, openai.ChatMessageRoleSystem, out.Messages[0].Role)
	assert.Equal(t, "You are a researcher", out.Messages[0].Content)
	assert.Equal(t, `{"query":"kartavya"}`, out.Messages[2].ToolCalls[0].Function.Arguments)
	assert.Equal(t, "call_1", out.Messages[3].ToolCallID)
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "search_documents", out.Tools[0].Function.Name)
	assert.Equal(t, "auto", out.ToolChoice)

	req.Options.ToolChoice = shared.ToolChoiceNone
	out, err = ToOpenAIRequest(req)
	require.NoError(t, err)
	require.Len(t, out.Tools, 1)
	assert.Equal(t, "none", out.ToolChoice)
}

func TestFromOpenAIResponse(t *testing.T) {
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			FinishReason: openai.FinishReasonToolCalls,
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{
					{ID: "a", Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "web_search", Arguments: `{"query":"go"}`}},
					{Type: openai.ToolTypeFunction, Function: openai.FunctionCall{Name: "web_search", Arguments: `not json`}},
				},
			},
		}},
		Usage: openai.Usage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	}

	out := FromOpenAIResponse(resp)
	assert.Equal(t, "tool", out.StopReason)
	require.Len(t, out.ToolCalls, 2)
	assert.Equal(t, "go", out.ToolCalls[0].Arguments["query"])
	assert.Equal(t, "call_1", out.ToolCalls[1].ID)
	assert.Equal(t, "not json", out.ToolCalls[1].Arguments["_raw"])
	assert.Equal(t, 15, out.Usage.TotalTokens)
}

func TestProviderComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "gemini-2.0-flash", req["model"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "x",
			"object": "chat.completion",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Kartavya is a platform."}}],
			"usage": {"prompt_tokens": 5, "completion_tokens": 4, "total_tokens": 9}
		}`))
	}))
	defer srv.Close()

	p, err := NewProvider("gemini", shared.Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/",
		Model:   "gemini-2.0-flash",
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())

	resp, err := p.Complete(context.Background(), &shared.CompletionRequest{
		Messages: []shared.Message{{Role: shared.RoleUser, Content: "what is kartavya?"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Kartavya is a platform.", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, 9, resp.Usage.TotalTokens)
}

func TestProviderCompleteAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "quota exceeded", "type": "rate_limit"}}`))
	}))
	defer srv.Close()

	p, err := NewProvider("openai", shared.Config{APIKey: "k", BaseURL: srv.URL, Model: "gpt-4o-mini"})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), &shared.CompletionRequest{
		Messages: []shared.Message{{Role: shared.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	var pe *shared.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, shared.ErrRateLimited, pe.Code)
	assert.Equal(t, http.StatusTooManyRequests, pe.HTTPStatus)
}

func TestNewProviderRequiresModel(t *testing.T) {
	_, err := NewProvider("openai", shared.Config{APIKey: "k"})
	assert.Error(t, err)
}
