package interfaces

import (
	"context"
	"time"
)

// Message is one turn of a conversation stored in long-term memory
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// MemoryEntry is a memory record as returned by the memory service
type MemoryEntry struct {
	ID         string   `json:"id"`
	Memory     string   `json:"memory"`
	Categories []string `json:"categories"`
	CreatedAt  string   `json:"created_at"`
}

// MemoryStore stores and recalls user-scoped conversational memory
type MemoryStore interface {
	Add(ctx context.Context, userID string, messages []Message) error
	Search(ctx context.Context, userID, query string, limit int) ([]MemoryEntry, error)
	Close() error
}

// Record is a text chunk destined for the vector index
type Record struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchHit is a vector index match
type SearchHit struct {
	ID     string                 `json:"id"`
	Score  float64                `json:"score"`
	Text   string                 `json:"text"`
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// VectorStore indexes text chunks and searches them by similarity to a
// text query. Embedding happens inside the store.
type VectorStore interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query string, topK int) ([]SearchHit, error)
	Close() error
}

// Embedder generates vector embeddings for text
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	GetDimension() int
}

// WebResult is one organic web search result
type WebResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
	Date     string `json:"date,omitempty"`
}

// WebSearchResponse is the normalized result of a web search
type WebSearchResponse struct {
	Query          string      `json:"query"`
	Answer         string      `json:"answer,omitempty"`
	KnowledgeGraph string      `json:"knowledge_graph,omitempty"`
	Results        []WebResult `json:"results"`
	Related        []string    `json:"related_searches,omitempty"`
}

// WebSearcher runs web searches
type WebSearcher interface {
	Search(ctx context.Context, query string, num int) (*WebSearchResponse, error)
}

// IngestStats contains statistics about an ingestion run
type IngestStats struct {
	TotalFiles     int           `json:"total_files"`
	ProcessedFiles int           `json:"processed_files"`
	FailedFiles    int           `json:"failed_files"`
	TotalChunks    int           `json:"total_chunks"`
	Upserted       int           `json:"upserted"`
	FailedRecords  int           `json:"failed_records"`
	ProcessingTime time.Duration `json:"processing_time"`
}
