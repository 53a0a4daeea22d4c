package embeddings

import (
	"fmt"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// Create creates an embedder instance based on the configuration
func Create(cfg config.EmbedderConfig) (interfaces.Embedder, error) {
	switch cfg.Provider {
	case "openai", "gemini", "ollama":
		return NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Provider)
	}
}
