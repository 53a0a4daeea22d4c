package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/llm/providertest"
	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
	"github.com/Kartavya-AI/ai-bot/internal/metrics"
)

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.LLMConfig
		wantName string
		wantErr  string
	}{
		{
			name:    "gemini without key",
			cfg:     config.LLMConfig{Provider: "gemini", Model: "gemini-2.0-flash"},
			wantErr: "GEMINI_API_KEY is not set",
		},
		{
			name:     "gemini",
			cfg:      config.LLMConfig{Provider: "gemini", Model: "gemini-2.0-flash", APIKey: "k"},
			wantName: "gemini",
		},
		{
			name:    "openai without key",
			cfg:     config.LLMConfig{Provider: "openai", Model: "gpt-4o-mini"},
			wantErr: "api key is required",
		},
		{
			name:     "ollama needs no key",
			cfg:      config.LLMConfig{Provider: "ollama", Model: "llama3.2"},
			wantName: "ollama",
		},
		{
			name:     "anthropic",
			cfg:      config.LLMConfig{Provider: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: "k"},
			wantName: "anthropic",
		},
		{
			name:    "unknown",
			cfg:     config.LLMConfig{Provider: "palm", Model: "bison"},
			wantErr: "unsupported llm provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestInstrument(t *testing.T) {
	m := metrics.New()
	fake := providertest.NewFakeProvider()
	fake.AddError("explode", errors.New("boom"))
	p := Instrument(fake, m)

	req := func(content string) *shared.CompletionRequest {
		return &shared.CompletionRequest{Messages: []shared.Message{{Role: shared.RoleUser, Content: content}}}
	}

	_, err := p.Complete(context.Background(), req("hello"))
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), req("explode"))
	require.Error(t, err)

	count, err := testutil.GatherAndCount(m.Registry(), "botcrew_llm_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Same(t, fake, Instrument(fake, nil))
}
