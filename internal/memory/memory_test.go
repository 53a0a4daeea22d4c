package memory

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/embeddings/embeddingstest"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

type recordingStore struct {
	userID   string
	messages []interfaces.Message
	err      error
}

func (r *recordingStore) Add(ctx context.Context, userID string, messages []interfaces.Message) error {
	r.userID = userID
	r.messages = messages
	return r.err
}

func (r *recordingStore) Search(ctx context.Context, userID, query string, limit int) ([]interfaces.MemoryEntry, error) {
	return nil, nil
}

func (r *recordingStore) Close() error { return nil }

func TestAddToHistory(t *testing.T) {
	tests := []struct {
		name    string
		content interface{}
		want    []interfaces.Message
		wantErr error
	}{
		{
			name:    "plain string",
			content: "hi there",
			want:    []interfaces.Message{{Role: "user", Content: "hi there"}},
		},
		{
			name:    "single dict",
			content: map[string]interface{}{"role": "assistant", "content": "hello"},
			want:    []interfaces.Message{{Role: "assistant", Content: "hello"}},
		},
		{
			name: "list of dicts",
			content: []interface{}{
				map[string]interface{}{"role": "user", "content": "q"},
				map[string]interface{}{"role": "assistant", "content": "a"},
			},
			want: []interfaces.Message{{Role: "user", Content: "q"}, {Role: "assistant", Content: "a"}},
		},
		{
			name:    "typed messages",
			content: []interfaces.Message{{Role: "user", Content: "q"}},
			want:    []interfaces.Message{{Role: "user", Content: "q"}},
		},
		{
			name:    "dict missing content",
			content: map[string]interface{}{"role": "user"},
			wantErr: ErrInvalidDict,
		},
		{
			name:    "list with non dict",
			content: []interface{}{"just text"},
			wantErr: ErrInvalidList,
		},
		{
			name:    "list item missing role",
			content: []map[string]string{{"content": "x"}},
			wantErr: ErrInvalidList,
		},
		{
			name:    "unsupported type",
			content: 42,
			wantErr: ErrUnsupportedInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			h := NewHistory(store, "", zerolog.Nop())

			msg, err := h.AddToHistory(context.Background(), tt.content, "")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, store.messages)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, store.messages)
			assert.Equal(t, DefaultUserID, store.userID)

			data, _ := json.Marshal(tt.want)
			assert.Equal(t, "Successfully added to memory: "+string(data), msg)
		})
	}
}

func TestAddToHistoryErrorMessages(t *testing.T) {
	assert.Equal(t, "Invalid message format. Each item must be a dict with 'role' and 'content'.", ErrInvalidList.Error())
	assert.Equal(t, "Invalid dict format. It must include 'role' and 'content'.", ErrInvalidDict.Error())
	assert.Equal(t, "Unsupported input. Provide a string, dict, or list of message dicts.", ErrUnsupportedInput.Error())

	store := &recordingStore{err: errors.New("quota exceeded")}
	h := NewHistory(store, "alice", zerolog.Nop())
	_, err := h.AddToHistory(context.Background(), "hello", "")
	require.Error(t, err)
	assert.Equal(t, "Error adding to memory: quota exceeded", err.Error())
	assert.Equal(t, "alice", store.userID)
}

func TestFormatEntries(t *testing.T) {
	out := FormatEntries([]interfaces.MemoryEntry{
		{ID: "1", Memory: "likes tea", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "2", Memory: "lives in Pune", Categories: []string{"personal"}},
	})

	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"1","memory":"likes tea","categories":[],"created_at":"2024-01-01T00:00:00Z"},
		{"id":"2","memory":"lives in Pune","categories":["personal"],"created_at":""}
	]`, string(data))
}

func newMem0(t *testing.T, handler http.HandlerFunc) *Mem0Store {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := NewMem0Store(config.MemoryConfig{APIKey: "m0-key", BaseURL: srv.URL}, config.TransportConfig{}, nil, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestMem0Add(t *testing.T) {
	s := newMem0(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/memories/", r.URL.Path)
		assert.Equal(t, "Token m0-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"messages":[{"role":"user","content":"hi"}],"user_id":"u1"}`, string(body))
		_, _ = w.Write([]byte(`[{"id":"m1","event":"ADD"}]`))
	})

	err := s.Add(context.Background(), "u1", []interfaces.Message{{Role: "user", Content: "hi"}})
	assert.NoError(t, err)
}

func TestMem0Search(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare list", body: `[{"id":"a","memory":"x","created_at":"t"},{"id":"b","memory":"y","created_at":"t"},{"id":"c","memory":"z","created_at":"t"}]`, want: 2},
		{name: "results envelope", body: `{"results":[{"id":"a","memory":"x","categories":["c"],"created_at":"t"}]}`, want: 1},
		{name: "empty", body: `[]`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMem0(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/memories/search/", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"query":"name","user_id":"u1"}`, string(body))
				_, _ = w.Write([]byte(tt.body))
			})

			entries, err := s.Search(context.Background(), "u1", "name", 2)
			require.NoError(t, err)
			assert.Len(t, entries, tt.want)
		})
	}
}

func TestMem0Errors(t *testing.T) {
	_, err := NewMem0Store(config.MemoryConfig{}, config.TransportConfig{}, nil, zerolog.Nop())
	assert.EqualError(t, err, "MEMORY_API_KEY is not set")

	s := newMem0(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"bad token"}`))
	})
	_, err = s.Search(context.Background(), "u1", "q", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestLocalStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(config.MemoryConfig{}, &embeddingstest.Embedder{}, zerolog.Nop())
	require.NoError(t, err)

	entries, err := store.Search(ctx, "nobody", "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Add(ctx, "u1", []interfaces.Message{
		{Role: "user", Content: "my favourite fruit is kiwi"},
		{Role: "assistant", Content: "noted"},
		{Role: "user", Content: "   "},
	}))
	require.NoError(t, store.Add(ctx, "u2", []interfaces.Message{{Role: "user", Content: "other user"}}))

	entries, err = store.Search(ctx, "u1", "kiwi fruit", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "my favourite fruit is kiwi", entries[0].Memory)
	assert.Equal(t, []string{"user"}, entries[0].Categories)
	assert.NotEmpty(t, entries[0].ID)
	assert.NotEmpty(t, entries[0].CreatedAt)
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	entries, err = store.Search(ctx, "u1", "kiwi", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestNewStore(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewStore(cfg, nil, zerolog.Nop())
	assert.Error(t, err)

	cfg.Memory.APIKey = "k"
	s, err := NewStore(cfg, nil, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &Mem0Store{}, s)

	cfg.Memory.Provider = "redis"
	_, err = NewStore(cfg, nil, zerolog.Nop())
	assert.Error(t, err)
}
