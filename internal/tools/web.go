package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// WebSearchTool searches the internet
type WebSearchTool struct {
	searcher interfaces.WebSearcher
}

// NewWebSearchTool creates the web_search tool
func NewWebSearchTool(searcher interfaces.WebSearcher) *WebSearchTool {
	return &WebSearchTool{searcher: searcher}
}

// Name returns the tool name
func (t *WebSearchTool) Name() string { return "web_search" }

// Description returns the tool description
func (t *WebSearchTool) Description() string {
	return "Search the internet with Google. Returns organic results with titles, links and snippets, plus a direct answer when one exists."
}

// Schema returns the JSON schema for input validation
func (t *WebSearchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Mandatory search query you want to use to search the internet",
			},
			"num_results": map[string]any{
				"type":        "integer",
				"description": "Number of results to return",
				"minimum":     1,
				"maximum":     20,
			},
		},
		"required": []string{"query"},
	}
}

// Execute runs the web search
func (t *WebSearchTool) Execute(ctx context.Context, input *ToolInput) (*ToolResult, error) {
	query := strings.TrimSpace(stringArg(input.Data, "query"))
	if query == "" {
		// some models send the query under search_query
		query = strings.TrimSpace(stringArg(input.Data, "search_query"))
	}
	if query == "" {
		return failure("query field is required and must be a string"), nil
	}

	resp, err := t.searcher.Search(ctx, query, intArg(input.Data, "num_results", 0))
	if err != nil {
		return failure(fmt.Sprintf("web search failed: %v", err)), nil
	}

	data := map[string]interface{}{
		"query":   resp.Query,
		"results": resp.Results,
	}
	if resp.Answer != "" {
		data["answer"] = resp.Answer
	}
	if resp.KnowledgeGraph != "" {
		data["knowledge_graph"] = resp.KnowledgeGraph
	}
	if len(resp.Related) > 0 {
		data["related_searches"] = resp.Related
	}
	return &ToolResult{Success: true, Data: data}, nil
}
