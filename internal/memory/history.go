// Package memory stores and recalls user-scoped conversational memory.
package memory

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// DefaultUserID is used when a caller does not name a user
const DefaultUserID = "Sarthak"

// These messages are shown verbatim to API clients and agents.
var (
	ErrInvalidList      = errors.New("Invalid message format. Each item must be a dict with 'role' and 'content'.")
	ErrInvalidDict      = errors.New("Invalid dict format. It must include 'role' and 'content'.")
	ErrUnsupportedInput = errors.New("Unsupported input. Provide a string, dict, or list of message dicts.")
)

// History writes conversation turns to a MemoryStore
type History struct {
	store       interfaces.MemoryStore
	defaultUser string
	logger      zerolog.Logger
}

// NewHistory wraps store. An empty defaultUser falls back to DefaultUserID.
func NewHistory(store interfaces.MemoryStore, defaultUser string, logger zerolog.Logger) *History {
	if defaultUser == "" {
		defaultUser = DefaultUserID
	}
	return &History{store: store, defaultUser: defaultUser, logger: logger}
}

// Store returns the underlying memory store
func (h *History) Store() interfaces.MemoryStore { return h.store }

// AddToHistory accepts a plain string (one user message), a single message
// or a list of messages and stores them for userID. On success it returns a
// confirmation that echoes the stored messages as JSON.
func (h *History) AddToHistory(ctx context.Context, content interface{}, userID string) (string, error) {
	messages, err := NormalizeMessages(content)
	if err != nil {
		return "", err
	}
	if userID == "" {
		userID = h.defaultUser
	}

	if err := h.store.Add(ctx, userID, messages); err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("failed to add to memory")
		return "", fmt.Errorf("Error adding to memory: %w", err)
	}

	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("Error adding to memory: %w", err)
	}
	return fmt.Sprintf("Successfully added to memory: %s", data), nil
}

// NormalizeMessages converts the accepted input shapes into messages
func NormalizeMessages(content interface{}) ([]interfaces.Message, error) {
	switch v := content.(type) {
	case string:
		return []interfaces.Message{{Role: "user", Content: v}}, nil
	case interfaces.Message:
		if !valid(v) {
			return nil, ErrInvalidDict
		}
		return []interfaces.Message{v}, nil
	case map[string]interface{}:
		m, ok := fromMap(v)
		if !ok {
			return nil, ErrInvalidDict
		}
		return []interfaces.Message{m}, nil
	case map[string]string:
		m := interfaces.Message{Role: v["role"], Content: v["content"]}
		if !valid(m) {
			return nil, ErrInvalidDict
		}
		return []interfaces.Message{m}, nil
	case []interfaces.Message:
		for _, m := range v {
			if !valid(m) {
				return nil, ErrInvalidList
			}
		}
		return v, nil
	case []map[string]string:
		out := make([]interfaces.Message, 0, len(v))
		for _, item := range v {
			m := interfaces.Message{Role: item["role"], Content: item["content"]}
			if !valid(m) {
				return nil, ErrInvalidList
			}
			out = append(out, m)
		}
		return out, nil
	case []interface{}:
		out := make([]interfaces.Message, 0, len(v))
		for _, item := range v {
			obj, ok := item.(map[string]interface{})
			if !ok {
				return nil, ErrInvalidList
			}
			m, ok := fromMap(obj)
			if !ok {
				return nil, ErrInvalidList
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedInput
	}
}

func fromMap(obj map[string]interface{}) (interfaces.Message, bool) {
	role, _ := obj["role"].(string)
	content, _ := obj["content"].(string)
	m := interfaces.Message{Role: role, Content: content}
	return m, valid(m)
}

func valid(m interfaces.Message) bool {
	return m.Role != "" && m.Content != ""
}
