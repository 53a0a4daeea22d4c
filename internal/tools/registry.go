package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
	"github.com/Kartavya-AI/ai-bot/internal/metrics"
)

// UsageStats aggregates calls of one tool
type UsageStats struct {
	Calls     int           `json:"calls"`
	Failures  int           `json:"failures"`
	TotalTime time.Duration `json:"total_time"`
}

// Registry manages tool registration and execution
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	stats   map[string]*UsageStats
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// NewRegistry creates a new tool registry. metrics may be nil.
func NewRegistry(m *metrics.Collector, logger zerolog.Logger) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		stats:   make(map[string]*UsageStats),
		metrics: m,
		logger:  logger,
	}
}

// Register adds a tool to the registry, replacing any tool with the same name
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// List returns the names of all registered tools, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns LLM tool definitions for the named tools
func (r *Registry) Definitions(names ...string) ([]shared.ToolDef, error) {
	defs := make([]shared.ToolDef, 0, len(names))
	for _, name := range names {
		tool, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, Definition(tool))
	}
	return defs, nil
}

// Execute runs a tool by name with the given input. A tool that returns an
// error is reported as a failed result so the caller can show it to the
// model; only an unknown tool name is returned as an error.
func (r *Registry) Execute(ctx context.Context, input *ToolInput) (*ToolResult, error) {
	tool, err := r.Get(input.Name)
	if err != nil {
		return nil, err
	}
	if input.Data == nil {
		input.Data = map[string]interface{}{}
	}

	start := time.Now()
	result, err := tool.Execute(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		result = failure(err.Error())
	} else if result == nil {
		result = failure("tool returned no result")
	}
	result.Stats.ExecutionTime = elapsed

	r.record(input.Name, result.Success, elapsed)
	r.logger.Debug().
		Str("tool", input.Name).
		Bool("success", result.Success).
		Dur("duration", elapsed).
		Msg("tool executed")
	return result, nil
}

func (r *Registry) record(name string, success bool, d time.Duration) {
	r.mu.Lock()
	s, ok := r.stats[name]
	if !ok {
		s = &UsageStats{}
		r.stats[name] = s
	}
	s.Calls++
	if !success {
		s.Failures++
	}
	s.TotalTime += d
	r.mu.Unlock()

	r.metrics.ObserveTool(name, success, d)
}

// Stats returns a snapshot of per-tool usage
func (r *Registry) Stats() map[string]UsageStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]UsageStats, len(r.stats))
	for name, s := range r.stats {
		out[name] = *s
	}
	return out
}
