package memory

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/vector"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

const (
	metaRole       = "role"
	metaCategories = "categories"
	metaCreatedAt  = "created_at"
)

// LocalStore keeps memories in chromem-go, one collection per user. Every
// non-empty message becomes one memory; the role is its category.
type LocalStore struct {
	db     *chromem.DB
	embed  chromem.EmbeddingFunc
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewLocalStore opens a persistent store at cfg.LocalPath, or an in-memory
// one when the path is empty
func NewLocalStore(cfg config.MemoryConfig, embedder interfaces.Embedder, logger zerolog.Logger) (*LocalStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("local memory store requires an embedder")
	}

	db := chromem.NewDB()
	if cfg.LocalPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(cfg.LocalPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open local memory db at %s: %w", cfg.LocalPath, err)
		}
	}

	return &LocalStore{
		db:      db,
		embed:   vector.EmbeddingFunc(embedder),
		logger:  logger.With().Str("memory", "local").Logger(),
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func collectionName(userID string) string {
	return "memory-" + userID
}

func (s *LocalStore) newID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// Add stores each message as a memory for userID
func (s *LocalStore) Add(ctx context.Context, userID string, messages []interfaces.Message) error {
	collection, err := s.db.GetOrCreateCollection(collectionName(userID), nil, s.embed)
	if err != nil {
		return fmt.Errorf("failed to open memory collection for %s: %w", userID, err)
	}

	docs := make([]chromem.Document, 0, len(messages))
	for _, m := range messages {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:      s.newID(),
			Content: content,
			Metadata: map[string]string{
				metaRole:       m.Role,
				metaCategories: m.Role,
				metaCreatedAt:  s.now().UTC().Format(time.RFC3339),
			},
		})
	}
	if len(docs) == 0 {
		return nil
	}

	if err := collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add memory: %w", err)
	}
	s.logger.Debug().Str("user_id", userID).Int("memories", len(docs)).Msg("memory added")
	return nil
}

// Search returns userID's memories most similar to query
func (s *LocalStore) Search(ctx context.Context, userID, query string, limit int) ([]interfaces.MemoryEntry, error) {
	collection := s.db.GetCollection(collectionName(userID), s.embed)
	if collection == nil {
		return nil, nil
	}

	n := limit
	if count := collection.Count(); n <= 0 || n > count {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	results, err := collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to search memory: %w", err)
	}

	entries := make([]interfaces.MemoryEntry, 0, len(results))
	for _, r := range results {
		entry := interfaces.MemoryEntry{
			ID:        r.ID,
			Memory:    r.Content,
			CreatedAt: r.Metadata[metaCreatedAt],
		}
		if cats := r.Metadata[metaCategories]; cats != "" {
			entry.Categories = strings.Split(cats, ",")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close is a no-op; persistent collections are written on every change
func (s *LocalStore) Close() error { return nil }
