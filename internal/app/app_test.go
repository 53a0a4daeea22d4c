package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartavya-AI/ai-bot/internal/api"
	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/embeddings/embeddingstest"
	"github.com/Kartavya-AI/ai-bot/internal/llm/providertest"
	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
	"github.com/Kartavya-AI/ai-bot/internal/memory"
	"github.com/Kartavya-AI/ai-bot/internal/vector"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

type webStub struct{}

func (webStub) Search(ctx context.Context, query string, num int) (*interfaces.WebSearchResponse, error) {
	return &interfaces.WebSearchResponse{Query: query, Answer: "KartavyaAI is an AI studio"}, nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Crew.AgentsFile = "../../config/agents.yaml"
	cfg.Crew.TasksFile = "../../config/tasks.yaml"
	return cfg
}

func TestNewWithoutCredentials(t *testing.T) {
	a := New(context.Background(), testConfig(), zerolog.Nop())
	defer a.Close()

	assert.Nil(t, a.Crew)
	assert.Equal(t, []string{ComponentCrew, ComponentLLM, ComponentMemory, ComponentSearch, ComponentVector}, a.Failed())
	assert.Contains(t, a.Err(ComponentLLM).Error(), "GEMINI_API_KEY is not set")
	assert.Contains(t, a.Err(ComponentVector).Error(), "PINECONE_API_KEY is not set")
	assert.Contains(t, a.Err(ComponentMemory).Error(), "MEMORY_API_KEY is not set")
	assert.Contains(t, a.Err(ComponentSearch).Error(), "SERPER_API_KEY is not set")

	_, err := a.Pipeline()
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	a.Server().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var health api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "unhealthy", health.Status)
	assert.False(t, health.BotCrewInitialized)
}

func TestMissingToolLeavesCrewUninitialized(t *testing.T) {
	fake := providertest.NewFakeProvider()
	a := NewWithOverrides(context.Background(), testConfig(), zerolog.Nop(), Overrides{LLM: fake})
	defer a.Close()

	assert.Nil(t, a.Crew)
	require.Error(t, a.Err(ComponentCrew))
	assert.Contains(t, a.Err(ComponentCrew).Error(), "tool not found")
}

func TestQueryEndToEnd(t *testing.T) {
	cfg := testConfig()
	emb := &embeddingstest.Embedder{}

	docs, err := vector.NewLocalStore(cfg.Vector, emb, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, docs.Upsert(context.Background(), []interfaces.Record{
		{ID: "chunk-0", Text: "KartavyaAI builds conversational bots for small businesses."},
	}))

	mem, err := memory.NewLocalStore(cfg.Memory, emb, zerolog.Nop())
	require.NoError(t, err)

	fake := providertest.NewFakeProvider()
	fake.AddResponses("Look up stored memories", &shared.CompletionResponse{Content: "No prior memories."})
	fake.AddResponses("Research the user's question", &shared.CompletionResponse{Content: "KartavyaAI builds bots."})
	fake.AddResponses("Using the research findings", &shared.CompletionResponse{Content: "KartavyaAI builds conversational bots."})

	a := NewWithOverrides(context.Background(), cfg, zerolog.Nop(), Overrides{
		LLM:    fake,
		Vector: docs,
		Memory: mem,
		Search: webStub{},
	})
	defer a.Close()
	require.NotNil(t, a.Crew, "crew error: %v", a.Err(ComponentCrew))
	assert.Equal(t, []string{"get_from_memory", "search_documents", "web_search"}, a.Tools.List())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"What does KartavyaAI do?","sender":"sarthak"}`))
	a.Server().Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp api.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "KartavyaAI builds conversational bots.", resp.Result)
	assert.Equal(t, "success", resp.Status)

	stored, err := mem.Search(context.Background(), "sarthak", "KartavyaAI", 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	var texts []string
	for _, e := range stored {
		texts = append(texts, e.Memory)
	}
	assert.ElementsMatch(t, []string{"What does KartavyaAI do?", "KartavyaAI builds conversational bots."}, texts)
}
