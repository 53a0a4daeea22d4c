package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// DefaultTopK is the number of document matches returned when the caller
// does not ask for a specific count
const DefaultTopK = 2

// DocumentSearchTool searches the document index
type DocumentSearchTool struct {
	store interfaces.VectorStore
	topK  int
}

// NewDocumentSearchTool creates the search_documents tool
func NewDocumentSearchTool(store interfaces.VectorStore, topK int) *DocumentSearchTool {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &DocumentSearchTool{store: store, topK: topK}
}

// Name returns the tool name
func (t *DocumentSearchTool) Name() string { return "search_documents" }

// Description returns the tool description
func (t *DocumentSearchTool) Description() string {
	return "Search for relevant documents in the vector database. Returns the best matching text chunks with their scores."
}

// Schema returns the JSON schema for input validation
func (t *DocumentSearchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query text",
			},
			"top_k": map[string]any{
				"type":        "integer",
				"description": fmt.Sprintf("Number of top results to return (default: %d)", t.topK),
				"minimum":     1,
				"maximum":     50,
			},
		},
		"required": []string{"query"},
	}
}

// Execute runs the similarity search
func (t *DocumentSearchTool) Execute(ctx context.Context, input *ToolInput) (*ToolResult, error) {
	query := strings.TrimSpace(stringArg(input.Data, "query"))
	if query == "" {
		return failure("query field is required and must be a string"), nil
	}
	topK := intArg(input.Data, "top_k", t.topK)
	if topK <= 0 {
		topK = t.topK
	}

	hits, err := t.store.Search(ctx, query, topK)
	if err != nil {
		return failure(fmt.Sprintf("document search failed: %v", err)), nil
	}
	if hits == nil {
		hits = []interfaces.SearchHit{}
	}

	return &ToolResult{
		Success: true,
		Data: map[string]interface{}{
			"query": query,
			"hits":  hits,
		},
	}, nil
}
