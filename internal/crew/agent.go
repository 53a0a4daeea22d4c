package crew

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
	"github.com/Kartavya-AI/ai-bot/internal/tools"
)

// DefaultMaxIterations bounds an agent's tool-calling loop
const DefaultMaxIterations = 15

// AgentStats tracks one agent run
type AgentStats struct {
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	TokensIn   int           `json:"tokens_in"`
	TokensOut  int           `json:"tokens_out"`
	CallsMade  int           `json:"calls_made"`
	ToolCalls  int           `json:"tool_calls"`
	Iterations int           `json:"iterations"`
}

// AgentResult is the final answer of an agent for one task
type AgentResult struct {
	Content string            `json:"content"`
	Usage   shared.TokenUsage `json:"usage"`
	Stats   AgentStats        `json:"stats"`
}

// Agent executes tasks with an LLM and the tools it is allowed to use
type Agent struct {
	Key     string
	Config  AgentConfig
	llm     shared.LLMProvider
	tools   *tools.Registry
	options shared.CompletionOptions
	maxIter int
	verbose bool
	logger  zerolog.Logger
}

// Assignment is an interpolated task handed to an agent
type Assignment struct {
	Description    string
	ExpectedOutput string
	Context        string
	Tools          []string
	Inputs         map[string]string
}

// Execute runs the tool loop until the model answers without calling tools.
// The last allowed iteration offers no tools so the model must answer.
func (a *Agent) Execute(ctx context.Context, task Assignment) (*AgentResult, error) {
	start := time.Now()
	result := &AgentResult{Stats: AgentStats{StartedAt: start}}

	toolNames := mergeTools(a.Config.Tools, task.Tools)
	defs, err := a.tools.Definitions(toolNames...)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.Key, err)
	}
	allowed := make(map[string]bool, len(toolNames))
	for _, name := range toolNames {
		allowed[name] = true
	}

	cfg := a.Config
	cfg.Role = Interpolate(cfg.Role, task.Inputs)
	cfg.Goal = Interpolate(cfg.Goal, task.Inputs)
	cfg.Backstory = Interpolate(cfg.Backstory, task.Inputs)

	messages := []shared.Message{
		{Role: shared.RoleSystem, Content: systemPrompt(cfg)},
		{Role: shared.RoleUser, Content: taskPrompt(task.Description, task.ExpectedOutput, task.Context)},
	}

	for iter := 1; iter <= a.maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		final := iter == a.maxIter
		opts := a.options
		if len(defs) > 0 {
			opts.Tools = defs
			if final {
				opts.ToolChoice = shared.ToolChoiceNone
			}
		}
		if final && iter > 1 {
			messages = append(messages, shared.Message{Role: shared.RoleUser, Content: forceAnswerPrompt})
		}

		resp, err := a.llm.Complete(ctx, &shared.CompletionRequest{Messages: messages, Options: opts})
		if err != nil {
			return nil, fmt.Errorf("agent %s: llm call failed: %w", a.Key, err)
		}
		result.Usage.Add(resp.Usage)
		result.Stats.CallsMade++
		result.Stats.Iterations = iter

		if len(resp.ToolCalls) == 0 || final {
			content := strings.TrimSpace(resp.Content)
			if content == "" {
				return nil, fmt.Errorf("agent %s: model returned an empty answer", a.Key)
			}
			result.Content = content
			break
		}

		messages = append(messages, shared.Message{
			Role:      shared.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})
		for _, call := range resp.ToolCalls {
			output := a.runTool(ctx, allowed, call)
			result.Stats.ToolCalls++
			messages = append(messages, shared.Message{
				Role:       shared.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
				Name:       call.Name,
			})
		}
	}

	result.Stats.Duration = time.Since(start)
	result.Stats.TokensIn = result.Usage.PromptTokens
	result.Stats.TokensOut = result.Usage.CompletionTokens
	return result, nil
}

func (a *Agent) runTool(ctx context.Context, allowed map[string]bool, call shared.ToolCall) string {
	if !allowed[call.Name] {
		return fmt.Sprintf("Error: tool %q is not available. Available tools: %s", call.Name, strings.Join(sortedKeys(allowed), ", "))
	}

	event := a.logger.Debug()
	if a.verbose {
		event = a.logger.Info()
	}
	event.Str("tool", call.Name).Interface("arguments", call.Arguments).Msg("using tool")

	res, err := a.tools.Execute(ctx, &tools.ToolInput{Name: call.Name, Data: call.Arguments})
	if err != nil {
		return "Error: " + err.Error()
	}
	return res.Content()
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mergeTools(lists ...[]string) []string {
	var out []string
	seen := map[string]bool{}
	for _, list := range lists {
		for _, name := range list {
			if name != "" && !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
