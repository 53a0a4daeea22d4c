package shared

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCompletionRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     *CompletionRequest
		wantErr string
	}{
		{
			name:    "nil request",
			req:     nil,
			wantErr: "request cannot be nil",
		},
		{
			name:    "no messages",
			req:     &CompletionRequest{Options: CompletionOptions{Model: "m"}},
			wantErr: "messages cannot be empty",
		},
		{
			name: "invalid role",
			req: &CompletionRequest{
				Messages: []Message{{Role: "robot", Content: "hi"}},
				Options:  CompletionOptions{Model: "m"},
			},
			wantErr: "invalid role 'robot'",
		},
		{
			name: "tool message without call id",
			req: &CompletionRequest{
				Messages: []Message{{Role: RoleTool, Content: "{}"}},
				Options:  CompletionOptions{Model: "m"},
			},
			wantErr: "tool_call_id",
		},
		{
			name: "missing model",
			req: &CompletionRequest{
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			},
			wantErr: "model cannot be empty",
		},
		{
			name: "valid",
			req: &CompletionRequest{
				Messages: []Message{
					{Role: RoleUser, Content: "hi"},
					{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "1", Name: "t"}}},
					{Role: RoleTool, ToolCallID: "1", Content: "{}"},
				},
				Options: CompletionOptions{Model: "m"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCompletionRequest(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			var pe *ProviderError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, ErrInvalidRequest, pe.Code)
		})
	}
}

func TestNormalizeError(t *testing.T) {
	assert.Nil(t, NormalizeError(nil))

	pe := &ProviderError{Code: ErrAuth, Message: "nope"}
	assert.Same(t, pe, NormalizeError(fmt.Errorf("wrapped: %w", pe)))

	assert.Equal(t, ErrTimeout, NormalizeError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrUnknown, NormalizeError(errors.New("boom")).Code)
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, ErrRateLimited, CodeForStatus(http.StatusTooManyRequests))
	assert.Equal(t, ErrAuth, CodeForStatus(http.StatusUnauthorized))
	assert.Equal(t, ErrModelNotFound, CodeForStatus(http.StatusNotFound))
	assert.Equal(t, ErrUnavailable, CodeForStatus(http.StatusBadGateway))
	assert.Equal(t, ErrInvalidRequest, CodeForStatus(http.StatusBadRequest))
}

func TestTokenUsageAdd(t *testing.T) {
	var total TokenUsage
	total.Add(TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	total.Add(TokenUsage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3})
	assert.Equal(t, TokenUsage{PromptTokens: 11, CompletionTokens: 7, TotalTokens: 18}, total)
}
