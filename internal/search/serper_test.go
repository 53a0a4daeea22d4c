package search

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kartavya-AI/ai-bot/internal/config"
)

const serperBody = `{
	"searchParameters": {"q": "golang"},
	"answerBox": {"title": "Go", "answer": "A programming language"},
	"knowledgeGraph": {"title": "Go", "description": "Language designed at Google"},
	"organic": [
		{"title": "The Go Programming Language", "link": "https://go.dev", "snippet": "Build simple, secure systems", "position": 1},
		{"title": "Go on Wikipedia", "link": "https://en.wikipedia.org/wiki/Go", "snippet": "Go is a statically typed language"},
		{"title": "Tour", "link": "https://go.dev/tour", "snippet": "A tour of Go", "position": 3}
	],
	"relatedSearches": [{"query": "golang tutorial"}]
}`

func newTestClient(t *testing.T, ttl time.Duration, calls *int32) *SerperClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "serper-key", r.Header.Get("X-API-KEY"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"q":"golang","num":2}`, string(body))
		_, _ = w.Write([]byte(serperBody))
	}))
	t.Cleanup(srv.Close)

	c, err := NewSerperClient(config.SearchConfig{
		APIKey:     "serper-key",
		BaseURL:    srv.URL,
		NumResults: 2,
		CacheTTL:   ttl,
	}, config.TransportConfig{}, nil, zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestSerperSearch(t *testing.T) {
	var calls int32
	c := newTestClient(t, 0, &calls)

	resp, err := c.Search(context.Background(), "  golang ", 0)
	require.NoError(t, err)

	assert.Equal(t, "golang", resp.Query)
	assert.Equal(t, "A programming language", resp.Answer)
	assert.Equal(t, "Go: Language designed at Google", resp.KnowledgeGraph)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://go.dev", resp.Results[0].Link)
	assert.Equal(t, 2, resp.Results[1].Position)
	assert.Equal(t, []string{"golang tutorial"}, resp.Related)

	_, err = c.Search(context.Background(), "golang", 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls), "no cache configured")
}

func TestSerperSearchCaches(t *testing.T) {
	var calls int32
	c := newTestClient(t, time.Minute, &calls)

	first, err := c.Search(context.Background(), "golang", 2)
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "golang", 2)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSerperErrors(t *testing.T) {
	_, err := NewSerperClient(config.SearchConfig{}, config.TransportConfig{}, nil, zerolog.Nop())
	assert.EqualError(t, err, "SERPER_API_KEY is not set")

	var calls int32
	c := newTestClient(t, 0, &calls)
	_, err = c.Search(context.Background(), "   ", 0)
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()
	c, err = NewSerperClient(config.SearchConfig{APIKey: "k", BaseURL: srv.URL}, config.TransportConfig{}, nil, zerolog.Nop())
	require.NoError(t, err)
	_, err = c.Search(context.Background(), "golang", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestToWebSearchResponseWithoutExtras(t *testing.T) {
	out := toWebSearchResponse("q", &serperResponse{}, 5)
	assert.Empty(t, out.Answer)
	assert.Empty(t, out.KnowledgeGraph)
	assert.NotNil(t, out.Results)
	assert.Empty(t, out.Results)
}
