package memory

import (
	"bytes"
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/transport"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

const (
	mem0AddPath    = "/v1/memories/"
	mem0SearchPath = "/v1/memories/search/"
)

// Mem0Store talks to the mem0 memory-as-a-service REST API
type Mem0Store struct {
	client *transport.Client
	logger zerolog.Logger
}

type mem0AddRequest struct {
	Messages []interfaces.Message `json:"messages"`
	UserID   string               `json:"user_id"`
}

type mem0SearchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// NewMem0Store creates a mem0 client on the shared transport
func NewMem0Store(cfg config.MemoryConfig, tcfg config.TransportConfig, observer transport.Observer, logger zerolog.Logger) (*Mem0Store, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("MEMORY_API_KEY is not set")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.mem0.ai"
	}

	opts := transport.OptionsFromConfig("mem0", baseURL, tcfg)
	opts.Headers = map[string]string{"Authorization": "Token " + cfg.APIKey}
	opts.Observer = observer

	return &Mem0Store{
		client: transport.NewClient(opts, logger),
		logger: logger.With().Str("memory", "mem0").Logger(),
	}, nil
}

// Add stores messages for userID. mem0 extracts the memories itself.
func (s *Mem0Store) Add(ctx context.Context, userID string, messages []interfaces.Message) error {
	req := mem0AddRequest{Messages: messages, UserID: userID}
	if err := s.client.PostJSON(ctx, mem0AddPath, req, nil); err != nil {
		return fmt.Errorf("failed to add memory: %w", err)
	}
	s.logger.Debug().Str("user_id", userID).Int("messages", len(messages)).Msg("memory added")
	return nil
}

// Search returns memories for userID relevant to query, at most limit when
// limit is positive
func (s *Mem0Store) Search(ctx context.Context, userID, query string, limit int) ([]interfaces.MemoryEntry, error) {
	var raw json.RawMessage
	req := mem0SearchRequest{Query: query, UserID: userID}
	if err := s.client.PostJSON(ctx, mem0SearchPath, req, &raw); err != nil {
		return nil, fmt.Errorf("failed to search memory: %w", err)
	}

	entries, err := decodeMem0Results(raw)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Close is a no-op
func (s *Mem0Store) Close() error { return nil }

// decodeMem0Results accepts both a bare list and a {"results": [...]} envelope
func decodeMem0Results(raw json.RawMessage) ([]interfaces.MemoryEntry, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var entries []interfaces.MemoryEntry
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode memory results: %w", err)
		}
		return entries, nil
	}

	var envelope struct {
		Results []interfaces.MemoryEntry `json:"results"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode memory results: %w", err)
	}
	return envelope.Results, nil
}
