package embeddings

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	llmopenai "github.com/Kartavya-AI/ai-bot/internal/llm/openai"
)

// OpenAIEmbedder implements the Embedder interface for the OpenAI embeddings
// API and compatible endpoints (Gemini, Ollama)
type OpenAIEmbedder struct {
	config config.EmbedderConfig
	client *openai.Client

	mu        sync.RWMutex
	dimension int
}

// NewOpenAIEmbedder creates a new embedder instance. When no dimension is
// configured it is learned from the first embedding returned.
func NewOpenAIEmbedder(cfg config.EmbedderConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required for %s embedder", cfg.Provider)
	}

	baseURL := cfg.BaseURL
	apiKey := cfg.APIKey
	switch cfg.Provider {
	case "gemini":
		if baseURL == "" {
			baseURL = llmopenai.GeminiBaseURL
		}
	case "ollama":
		if baseURL == "" {
			baseURL = llmopenai.OllamaBaseURL
		}
		if apiKey == "" {
			apiKey = "ollama"
		}
	}
	if apiKey == "" {
		return nil, fmt.Errorf("api_key is required for %s embedder", cfg.Provider)
	}

	openaiConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		openaiConfig.BaseURL = strings.TrimRight(baseURL, "/")
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: 5 * time.Minute}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}

	return &OpenAIEmbedder{
		config:    cfg,
		client:    openai.NewClientWithConfig(openaiConfig),
		dimension: cfg.Dimension,
	}, nil
}

// Embed generates embeddings for a single text
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	results, err := o.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return results[0], nil
}

// EmbedBatch generates embeddings for multiple texts
func (o *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	embeddings := make([][]float32, len(texts))
	for i := 0; i < len(texts); i += o.config.BatchSize {
		end := min(i+o.config.BatchSize, len(texts))

		resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[i:end],
			Model: openai.EmbeddingModel(o.config.Model),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}
		if len(resp.Data) != end-i {
			return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", end-i, len(resp.Data))
		}

		for j, d := range resp.Data {
			idx := d.Index
			if idx < 0 || idx >= end-i {
				idx = j
			}
			embeddings[i+idx] = d.Embedding
		}
	}

	o.learnDimension(len(embeddings[0]))
	return embeddings, nil
}

func (o *OpenAIEmbedder) learnDimension(n int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dimension == 0 {
		o.dimension = n
	}
}

// GetDimension returns the embedding dimension, or 0 before it is known
func (o *OpenAIEmbedder) GetDimension() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.dimension
}
