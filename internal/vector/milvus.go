package vector

import (
	"context"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

const (
	milvusIDField     = "id"
	milvusSourceField = "source"
	milvusVectorField = "text_embedding"
	milvusMaxText     = 65535
)

// MilvusStore implements VectorStore on a Milvus collection. Text is embedded
// client-side with the configured embedder.
type MilvusStore struct {
	config    config.VectorConfig
	client    client.Client
	embedder  interfaces.Embedder
	textField string
	logger    zerolog.Logger
}

// NewMilvusStore connects to Milvus
func NewMilvusStore(ctx context.Context, cfg config.VectorConfig, embedder interfaces.Embedder, logger zerolog.Logger) (*MilvusStore, error) {
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("milvus requires an embedder")
	}

	c, err := client.NewClient(ctx, client.Config{
		Address:  fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	return &MilvusStore{
		config:    cfg,
		client:    c,
		embedder:  embedder,
		textField: cfg.TextField,
		logger:    logger.With().Str("store", "milvus").Str("collection", cfg.IndexName).Logger(),
	}, nil
}

// EnsureIndex creates and loads the collection when it does not exist
func (m *MilvusStore) EnsureIndex(ctx context.Context) error {
	exists, err := m.client.HasCollection(ctx, m.config.IndexName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return m.client.LoadCollection(ctx, m.config.IndexName, false)
	}

	dim := m.embedder.GetDimension()
	if dim == 0 {
		probe, err := m.embedder.Embed(ctx, "dimension probe")
		if err != nil {
			return fmt.Errorf("failed to determine embedding dimension: %w", err)
		}
		dim = len(probe)
	}

	m.logger.Info().Int("dim", dim).Msg("creating collection")
	if err := m.client.CreateCollection(ctx, buildMilvusSchema(m.config.IndexName, m.textField, dim), entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	index, err := entity.NewIndexFlat(entity.COSINE)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := m.client.CreateIndex(ctx, m.config.IndexName, milvusVectorField, index, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.config.IndexName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

func buildMilvusSchema(collection, textField string, dim int) *entity.Schema {
	return &entity.Schema{
		CollectionName: collection,
		Description:    "Document chunks for retrieval",
		Fields: []*entity.Field{
			{
				Name:        milvusIDField,
				DataType:    entity.FieldTypeVarChar,
				PrimaryKey:  true,
				TypeParams:  map[string]string{"max_length": "256"},
				Description: "Chunk id",
			},
			{
				Name:        textField,
				DataType:    entity.FieldTypeVarChar,
				TypeParams:  map[string]string{"max_length": strconv.Itoa(milvusMaxText)},
				Description: "Chunk text",
			},
			{
				Name:        milvusSourceField,
				DataType:    entity.FieldTypeVarChar,
				TypeParams:  map[string]string{"max_length": "1000"},
				Description: "Source file path",
			},
			{
				Name:        milvusVectorField,
				DataType:    entity.FieldTypeFloatVector,
				TypeParams:  map[string]string{"dim": strconv.Itoa(dim)},
				Description: "Text embedding vector",
			},
		},
	}
}

// Upsert embeds and writes records, replacing rows with the same id
func (m *MilvusStore) Upsert(ctx context.Context, records []interfaces.Record) error {
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	texts := make([]string, len(records))
	sources := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
		texts[i] = truncate(r.Text, milvusMaxText)
		sources[i] = r.Metadata["source"]
	}

	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed records: %w", err)
	}
	if len(vectors) == 0 {
		return fmt.Errorf("embedder returned no vectors")
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(milvusIDField, ids),
		entity.NewColumnVarChar(m.textField, texts),
		entity.NewColumnVarChar(milvusSourceField, sources),
		entity.NewColumnFloatVector(milvusVectorField, len(vectors[0]), vectors),
	}

	if _, err := m.client.Upsert(ctx, m.config.IndexName, "", columns...); err != nil {
		return fmt.Errorf("failed to upsert records: %w", err)
	}
	if err := m.client.Flush(ctx, m.config.IndexName, false); err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	return nil
}

// Search embeds the query and returns the topK nearest chunks
func (m *MilvusStore) Search(ctx context.Context, query string, topK int) ([]interfaces.SearchHit, error) {
	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sp, err := entity.NewIndexFlatSearchParam()
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := m.client.Search(ctx, m.config.IndexName, nil, "",
		[]string{m.textField, milvusSourceField},
		[]entity.Vector{entity.FloatVector(vec)},
		milvusVectorField, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	var hits []interfaces.SearchHit
	for _, rs := range results {
		textCol := rs.Fields.GetColumn(m.textField)
		sourceCol := rs.Fields.GetColumn(milvusSourceField)
		for i := 0; i < rs.ResultCount; i++ {
			hit := interfaces.SearchHit{Fields: map[string]interface{}{}}
			if id, err := rs.IDs.GetAsString(i); err == nil {
				hit.ID = id
			}
			if i < len(rs.Scores) {
				hit.Score = float64(rs.Scores[i])
			}
			if textCol != nil {
				if text, err := textCol.GetAsString(i); err == nil {
					hit.Text = text
					hit.Fields[m.textField] = text
				}
			}
			if sourceCol != nil {
				if src, err := sourceCol.GetAsString(i); err == nil && src != "" {
					hit.Fields[milvusSourceField] = src
				}
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Close closes the Milvus client connection
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
