// Package vector implements the document index behind the search_documents
// tool and the ingest pipeline.
package vector

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/embeddings"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// NewStore creates the configured vector store. Pinecone embeds server-side;
// the other providers build an embedder from embCfg.
func NewStore(ctx context.Context, cfg config.VectorConfig, embCfg config.EmbedderConfig, logger zerolog.Logger) (interfaces.VectorStore, error) {
	switch cfg.Provider {
	case "pinecone":
		return NewPineconeStore(cfg, logger)
	case "milvus", "local":
		embedder, err := embeddings.Create(embCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		if cfg.Provider == "milvus" {
			return NewMilvusStore(ctx, cfg, embedder, logger)
		}
		return NewLocalStore(cfg, embedder, logger)
	default:
		return nil, fmt.Errorf("unsupported vector provider: %s", cfg.Provider)
	}
}
