package vector

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

const localConcurrency = 4

// LocalStore implements VectorStore on an embedded chromem-go collection.
// With an empty LocalPath the collection lives in memory only.
type LocalStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	textField  string
	logger     zerolog.Logger
}

// EmbeddingFunc adapts an Embedder to chromem's embedding callback
func EmbeddingFunc(e interfaces.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return e.Embed(ctx, text)
	}
}

// NewLocalStore opens or creates the local collection
func NewLocalStore(cfg config.VectorConfig, embedder interfaces.Embedder, logger zerolog.Logger) (*LocalStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("local vector store requires an embedder")
	}

	db := chromem.NewDB()
	if cfg.LocalPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.LocalPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open local vector db at %s: %w", cfg.LocalPath, err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.IndexName, nil, EmbeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", cfg.IndexName, err)
	}

	return &LocalStore{
		db:         db,
		collection: collection,
		textField:  cfg.TextField,
		logger:     logger.With().Str("store", "local").Str("collection", cfg.IndexName).Logger(),
	}, nil
}

// EnsureIndex is a no-op; the collection is created on open
func (s *LocalStore) EnsureIndex(ctx context.Context) error { return nil }

// Upsert embeds and stores records. Existing ids are overwritten.
func (s *LocalStore) Upsert(ctx context.Context, records []interfaces.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]chromem.Document, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("record id is required")
		}
		docs = append(docs, chromem.Document{
			ID:       r.ID,
			Content:  r.Text,
			Metadata: r.Metadata,
		})
	}
	if err := s.collection.AddDocuments(ctx, docs, localConcurrency); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	s.logger.Debug().Int("records", len(records)).Msg("upserted")
	return nil
}

// Search returns up to topK records ordered by similarity
func (s *LocalStore) Search(ctx context.Context, query string, topK int) ([]interfaces.SearchHit, error) {
	n := topK
	if count := s.collection.Count(); n > count {
		n = count
	}
	if n <= 0 {
		return []interfaces.SearchHit{}, nil
	}

	results, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	hits := make([]interfaces.SearchHit, 0, len(results))
	for _, r := range results {
		fields := map[string]interface{}{s.textField: r.Content}
		for k, v := range r.Metadata {
			fields[k] = v
		}
		hits = append(hits, interfaces.SearchHit{
			ID:     r.ID,
			Score:  float64(r.Similarity),
			Text:   r.Content,
			Fields: fields,
		})
	}
	return hits, nil
}

// Count returns the number of stored records
func (s *LocalStore) Count() int { return s.collection.Count() }

// Close is a no-op; persistent collections are written on every change
func (s *LocalStore) Close() error { return nil }
