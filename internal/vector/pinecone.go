package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// PineconeStore implements VectorStore on a Pinecone index with integrated
// embedding: records are sent as text and embedded server-side.
type PineconeStore struct {
	config config.VectorConfig
	client *pinecone.Client
	logger zerolog.Logger

	mu   sync.Mutex
	conn *pinecone.IndexConnection
}

// NewPineconeStore creates a Pinecone client. No network call is made until
// the index is first used.
func NewPineconeStore(cfg config.VectorConfig, logger zerolog.Logger) (*PineconeStore, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is not set")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "__default__"
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	return &PineconeStore{
		config: cfg,
		client: pc,
		logger: logger.With().Str("store", "pinecone").Str("index", cfg.IndexName).Logger(),
	}, nil
}

// EnsureIndex creates the index for the configured embedding model when it
// does not exist yet, then connects to it.
func (s *PineconeStore) EnsureIndex(ctx context.Context) error {
	host, err := s.findIndexHost(ctx)
	if err != nil {
		return err
	}

	if host == "" {
		s.logger.Info().Str("model", s.config.EmbedModel).Msg("creating index")
		idx, err := s.client.CreateIndexForModel(ctx, &pinecone.CreateIndexForModelRequest{
			Name:   s.config.IndexName,
			Cloud:  pinecone.Cloud(s.config.Cloud),
			Region: s.config.Region,
			Embed: pinecone.CreateIndexForModelEmbed{
				Model:    s.config.EmbedModel,
				FieldMap: map[string]interface{}{"text": s.config.TextField},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", s.config.IndexName, err)
		}
		host = idx.Host
	}

	_, err = s.connect(host)
	return err
}

func (s *PineconeStore) findIndexHost(ctx context.Context) (string, error) {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list indexes: %w", err)
	}
	for _, idx := range indexes {
		if idx != nil && idx.Name == s.config.IndexName {
			return idx.Host, nil
		}
	}
	return "", nil
}

func (s *PineconeStore) connect(host string) (*pinecone.IndexConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}
	conn, err := s.client.Index(pinecone.NewIndexConnParams{
		Host:      host,
		Namespace: s.config.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to index %s: %w", s.config.IndexName, err)
	}
	s.conn = conn
	return conn, nil
}

func (s *PineconeStore) connection(ctx context.Context) (*pinecone.IndexConnection, error) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	idx, err := s.client.DescribeIndex(ctx, s.config.IndexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %s: %w", s.config.IndexName, err)
	}
	return s.connect(idx.Host)
}

// Upsert sends records for server-side embedding
func (s *PineconeStore) Upsert(ctx context.Context, records []interfaces.Record) error {
	if len(records) == 0 {
		return nil
	}
	conn, err := s.connection(ctx)
	if err != nil {
		return err
	}

	if err := conn.UpsertRecords(ctx, toIntegratedRecords(records, s.config.TextField)); err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(records), err)
	}
	return nil
}

// Search embeds the query server-side and returns the topK nearest records
func (s *PineconeStore) Search(ctx context.Context, query string, topK int) ([]interfaces.SearchHit, error) {
	conn, err := s.connection(ctx)
	if err != nil {
		return nil, err
	}

	res, err := conn.SearchRecords(ctx, &pinecone.SearchRecordsRequest{
		Query: pinecone.SearchRecordsQuery{
			TopK:   int32(topK),
			Inputs: &map[string]interface{}{"text": query},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search index %s: %w", s.config.IndexName, err)
	}

	return fromHits(res.Result.Hits, s.config.TextField), nil
}

// Close releases the index connection
func (s *PineconeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func toIntegratedRecords(records []interfaces.Record, textField string) []*pinecone.IntegratedRecord {
	out := make([]*pinecone.IntegratedRecord, 0, len(records))
	for _, r := range records {
		rec := pinecone.IntegratedRecord{
			"_id":     r.ID,
			textField: r.Text,
		}
		for k, v := range r.Metadata {
			if k == "_id" || k == textField {
				continue
			}
			rec[k] = v
		}
		out = append(out, &rec)
	}
	return out
}

func fromHits(hits []pinecone.Hit, textField string) []interfaces.SearchHit {
	out := make([]interfaces.SearchHit, 0, len(hits))
	for _, h := range hits {
		hit := interfaces.SearchHit{
			ID:     h.Id,
			Score:  float64(h.Score),
			Fields: h.Fields,
		}
		if text, ok := h.Fields[textField].(string); ok {
			hit.Text = text
		}
		out = append(out, hit)
	}
	return out
}
