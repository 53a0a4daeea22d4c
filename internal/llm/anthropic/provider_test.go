package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
)

func TestNewProviderRequiresKey(t *testing.T) {
	_, err := NewProvider(shared.Config{Model: "claude-3-5-haiku-latest"})
	assert.Error(t, err)

	_, err = NewProvider(shared.Config{APIKey: "k"})
	assert.Error(t, err)

	p, err := NewProvider(shared.Config{APIKey: "k", Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestToParamsGroupsToolResults(t *testing.T) {
	p, err := NewProvider(shared.Config{APIKey: "k", Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)

	req := &shared.CompletionRequest{
		System: "You are the final reply agent",
		Messages: []shared.Message{
			{Role: shared.RoleSystem, Content: "Be brief"},
			{Role: shared.RoleUser, Content: "what is kartavya?"},
			{Role: shared.RoleAssistant, ToolCalls: []shared.ToolCall{
				{ID: "t1", Name: "search_documents", Arguments: map[string]any{"query": "kartavya"}},
				{ID: "t2", Name: "web_search", Arguments: map[string]any{"query": "kartavya"}},
			}},
			{Role: shared.RoleTool, ToolCallID: "t1", Content: "doc hits"},
			{Role: shared.RoleTool, ToolCallID: "t2", Content: "web hits"},
		},
		Options: shared.CompletionOptions{
			Model: "claude-3-5-haiku-latest",
			Tools: []shared.ToolDef{{
				Name:        "search_documents",
				Description: "Search the document index",
				JSONSchema: map[string]any{
					"type":       "object",
					"properties": map[string]any{"query": map[string]any{"type": "string"}},
					"required":   []string{"query"},
				},
			}},
		},
	}

	params, err := p.toParams(req)
	require.NoError(t, err)

	require.Len(t, params.System, 1)
	assert.Equal(t, "You are the final reply agent\n\nBe brief", params.System[0].Text)
	assert.Equal(t, int64(defaultMaxTokens), params.MaxTokens)

	require.Len(t, params.Messages, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, params.Messages[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, params.Messages[1].Role)
	assert.Len(t, params.Messages[1].Content, 2)
	assert.Equal(t, anthropic.MessageParamRoleUser, params.Messages[2].Role)
	require.Len(t, params.Messages[2].Content, 2)
	assert.NotNil(t, params.Messages[2].Content[0].OfToolResult)

	require.Len(t, params.Tools, 1)
	require.NotNil(t, params.Tools[0].OfTool)
	assert.Equal(t, "search_documents", params.Tools[0].OfTool.Name)
	assert.Equal(t, []string{"query"}, params.Tools[0].OfTool.InputSchema.Required)
}

func TestToParamsFinalTurnKeepsToolsWithChoiceNone(t *testing.T) {
	p, err := NewProvider(shared.Config{APIKey: "k", Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)

	req := &shared.CompletionRequest{
		Messages: []shared.Message{
			{Role: shared.RoleUser, Content: "what is kartavya?"},
			{Role: shared.RoleAssistant, ToolCalls: []shared.ToolCall{
				{ID: "t1", Name: "search_documents", Arguments: map[string]any{"query": "kartavya"}},
			}},
			{Role: shared.RoleTool, ToolCallID: "t1", Content: "doc hits"},
			{Role: shared.RoleUser, Content: "Give your final answer now."},
		},
		Options: shared.CompletionOptions{
			Tools: []shared.ToolDef{{
				Name:       "search_documents",
				JSONSchema: map[string]any{"type": "object"},
			}},
			ToolChoice: shared.ToolChoiceNone,
		},
	}

	params, err := p.toParams(req)
	require.NoError(t, err)

	assert.NotEmpty(t, params.Tools)
	assert.NotNil(t, params.ToolChoice.OfNone)
	assert.Nil(t, params.ToolChoice.OfAuto)
	require.Len(t, params.Messages, 3)
	assert.NotNil(t, params.Messages[1].Content[0].OfToolUse)
	require.Len(t, params.Messages[2].Content, 2)
	assert.NotNil(t, params.Messages[2].Content[0].OfToolResult)
	assert.NotNil(t, params.Messages[2].Content[1].OfText)
}

func TestToParamsWithoutToolChoice(t *testing.T) {
	p, err := NewProvider(shared.Config{APIKey: "k", Model: "claude-3-5-haiku-latest"})
	require.NoError(t, err)

	params, err := p.toParams(&shared.CompletionRequest{
		Messages: []shared.Message{{Role: shared.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Nil(t, params.ToolChoice.OfNone)
}
