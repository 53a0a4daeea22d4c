// Package tools holds the tools agents can call and the registry that runs
// them.
package tools

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
)

// ToolInput represents input data for tool execution
type ToolInput struct {
	Name string                 `json:"name"`
	Data map[string]interface{} `json:"data"`
}

// ToolResult represents the result of tool execution. Message, when set, is
// shown to the agent instead of Data.
type ToolResult struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Message string                 `json:"message,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Stats   ToolStats              `json:"stats,omitempty"`
}

// ToolStats tracks tool execution statistics
type ToolStats struct {
	ExecutionTime time.Duration `json:"execution_time"`
}

// Content renders the result as the text an agent reads
func (r *ToolResult) Content() string {
	if r == nil {
		return ""
	}
	if !r.Success {
		return r.Error
	}
	if r.Message != "" {
		return r.Message
	}
	data, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Sprintf("failed to encode tool result: %v", err)
	}
	return string(data)
}

func failure(msg string) *ToolResult {
	return &ToolResult{Success: false, Error: msg}
}

// Tool defines the interface that all tools must implement
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, input *ToolInput) (*ToolResult, error)
}

// Definition describes t to an LLM
func Definition(t Tool) shared.ToolDef {
	return shared.ToolDef{
		Name:        t.Name(),
		Description: t.Description(),
		JSONSchema:  t.Schema(),
	}
}

func stringArg(data map[string]interface{}, key string) string {
	s, _ := data[key].(string)
	return s
}

// intArg reads a number argument; JSON numbers decode as float64
func intArg(data map[string]interface{}, key string, def int) int {
	switch v := data[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
