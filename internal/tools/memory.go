package tools

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/Kartavya-AI/ai-bot/internal/memory"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// Messages shown to the agent by get_from_memory
const (
	MsgInvalidJSON    = "Invalid JSON input."
	MsgMissingFields  = "Both 'query' and 'user_id' must be provided in the request."
	MsgNoMemoryFound  = "No memory found for the given query."
	memoryToolName    = "get_from_memory"
	memoryRequestBody = "request_body"
)

// MemoryTool recalls a user's long-term memories
type MemoryTool struct {
	store interfaces.MemoryStore
	limit int
}

// NewMemoryTool creates the get_from_memory tool
func NewMemoryTool(store interfaces.MemoryStore, limit int) *MemoryTool {
	return &MemoryTool{store: store, limit: limit}
}

// Name returns the tool name
func (t *MemoryTool) Name() string { return memoryToolName }

// Description returns the tool description
func (t *MemoryTool) Description() string {
	return "Retrieve and format memory entries based on a JSON string containing query and user_id. " +
		`Example request_body: '{"query": "user name", "user_id": "7838034911"}'`
}

// Schema returns the JSON schema for input validation
func (t *MemoryTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			memoryRequestBody: map[string]any{
				"type":        "string",
				"description": `A JSON string with "query" and "user_id".`,
			},
		},
		"required": []string{memoryRequestBody},
	}
}

type memoryRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// Execute searches memory for the requested user
func (t *MemoryTool) Execute(ctx context.Context, input *ToolInput) (*ToolResult, error) {
	req, ok := parseMemoryRequest(input.Data)
	if !ok {
		return failure(MsgInvalidJSON), nil
	}
	if strings.TrimSpace(req.Query) == "" || strings.TrimSpace(req.UserID) == "" {
		return failure(MsgMissingFields), nil
	}

	entries, err := t.store.Search(ctx, req.UserID, req.Query, t.limit)
	if err != nil {
		return failure(fmt.Sprintf("Error retrieving memory: %v", err)), nil
	}
	if len(entries) == 0 {
		return &ToolResult{Success: true, Message: MsgNoMemoryFound}, nil
	}

	formatted := memory.FormatEntries(entries)
	data, err := json.Marshal(formatted)
	if err != nil {
		return nil, fmt.Errorf("failed to encode memories: %w", err)
	}
	return &ToolResult{
		Success: true,
		Data:    map[string]interface{}{"memories": formatted},
		Message: string(data),
	}, nil
}

// parseMemoryRequest reads request_body as a JSON string. Models sometimes
// send the object itself or flat query/user_id arguments; both are accepted.
func parseMemoryRequest(data map[string]interface{}) (memoryRequest, bool) {
	var req memoryRequest
	switch body := data[memoryRequestBody].(type) {
	case string:
		if err := json.Unmarshal([]byte(body), &req); err != nil {
			return req, false
		}
		return req, true
	case map[string]interface{}:
		req.Query = stringArg(body, "query")
		req.UserID = stringArg(body, "user_id")
		return req, true
	case nil:
		req.Query = stringArg(data, "query")
		req.UserID = stringArg(data, "user_id")
		return req, true
	default:
		return req, false
	}
}
