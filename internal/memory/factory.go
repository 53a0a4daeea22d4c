package memory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/embeddings"
	"github.com/Kartavya-AI/ai-bot/internal/transport"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// NewStore creates the configured memory store
func NewStore(cfg *config.Config, observer transport.Observer, logger zerolog.Logger) (interfaces.MemoryStore, error) {
	switch cfg.Memory.Provider {
	case "mem0":
		return NewMem0Store(cfg.Memory, cfg.Transport, observer, logger)
	case "local":
		embedder, err := embeddings.Create(cfg.Embeddings)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return NewLocalStore(cfg.Memory, embedder, logger)
	default:
		return nil, fmt.Errorf("unsupported memory provider: %s", cfg.Memory.Provider)
	}
}
