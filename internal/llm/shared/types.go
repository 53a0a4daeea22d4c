package shared

import (
	"context"
	"time"
)

// Role defines the role of a message in a conversation
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message represents a chat message for LLM providers
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content,omitempty"`
	// Set on assistant messages that request tool execution.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// Set on tool messages; links the result to the originating call.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`
}

// ToolDef defines a tool/function that can be called by the LLM
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	JSONSchema  map[string]any `json:"json_schema,omitempty"`
}

// ToolCall represents a tool call made by the LLM
type ToolCall struct {
	Name string `json:"name"`
	ID   string `json:"id,omitempty"`
	// Normalized JSON arguments.
	Arguments map[string]any `json:"arguments,omitempty"`
}

// CompletionOptions defines parameters for LLM completion requests
type CompletionOptions struct {
	Model       string
	MaxTokens   int
	Temperature float32
	Stop        []string
	Tools       []ToolDef
	// ToolChoice is empty (the model decides) or ToolChoiceNone.
	ToolChoice string
}

// ToolChoiceNone keeps the tool definitions on the request but forbids new
// calls. Providers that validate tool history need the definitions present.
const ToolChoiceNone = "none"

// CompletionRequest represents a request to complete
type CompletionRequest struct {
	Messages []Message
	Options  CompletionOptions
	// Optional system prompt when a provider needs top-level system.
	System string
}

// TokenUsage tracks token consumption for billing and monitoring
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add accumulates u into t
func (t *TokenUsage) Add(u TokenUsage) {
	t.PromptTokens += u.PromptTokens
	t.CompletionTokens += u.CompletionTokens
	t.TotalTokens += u.TotalTokens
}

// CompletionResponse represents the response from an LLM completion
type CompletionResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Usage      TokenUsage
	StopReason string // normalized stop reason: "stop", "length" or "tool"
}

// ErrorCode defines normalized error codes across providers
type ErrorCode string

const (
	ErrRateLimited    ErrorCode = "rate_limited"
	ErrTimeout        ErrorCode = "timeout"
	ErrAuth           ErrorCode = "auth"
	ErrInvalidRequest ErrorCode = "invalid_request"
	ErrModelNotFound  ErrorCode = "model_not_found"
	ErrUnavailable    ErrorCode = "service_unavailable"
	ErrUnknown        ErrorCode = "unknown"
)

// ProviderError represents a normalized error from any provider
type ProviderError struct {
	Code    ErrorCode
	Message string
	// Optional: original HTTP status
	HTTPStatus int
}

func (e *ProviderError) Error() string { return e.Message }

// LLMProvider defines the unified interface for LLM providers
type LLMProvider interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// ProviderType defines the type of LLM provider
type ProviderType string

const (
	ProviderGemini    ProviderType = "gemini"
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config holds the settings common to every provider
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}
