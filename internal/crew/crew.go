package crew

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
	"github.com/Kartavya-AI/ai-bot/internal/metrics"
	"github.com/Kartavya-AI/ai-bot/internal/tools"
)

// Options tune every agent of a crew
type Options struct {
	Model         string
	Temperature   float32
	MaxTokens     int
	MaxIterations int
	Verbose       bool
}

// TaskOutput is the result of one task
type TaskOutput struct {
	Name        string            `json:"name"`
	Agent       string            `json:"agent"`
	Description string            `json:"description"`
	Raw         string            `json:"raw"`
	Usage       shared.TokenUsage `json:"usage"`
	Stats       AgentStats        `json:"stats"`
}

// Output is the result of a kickoff; Raw is the last task's output
type Output struct {
	Raw      string            `json:"raw"`
	Tasks    []TaskOutput      `json:"tasks_output"`
	Usage    shared.TokenUsage `json:"token_usage"`
	Duration time.Duration     `json:"duration"`
}

func (o *Output) String() string { return o.Raw }

// Crew runs its tasks sequentially
type Crew struct {
	def     *Definition
	agents  map[string]*Agent
	metrics *metrics.Collector
	logger  zerolog.Logger
}

// New builds a crew from a validated definition. Every tool the definition
// names must be registered.
func New(def *Definition, provider shared.LLMProvider, registry *tools.Registry, opts Options, m *metrics.Collector, logger zerolog.Logger) (*Crew, error) {
	if provider == nil {
		return nil, fmt.Errorf("llm provider is required")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	for _, name := range def.ToolNames() {
		if _, err := registry.Get(name); err != nil {
			return nil, err
		}
	}

	maxIter := opts.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	agents := make(map[string]*Agent, len(def.Agents))
	for key, cfg := range def.Agents {
		agentIter := maxIter
		if cfg.MaxIter > 0 {
			agentIter = cfg.MaxIter
		}
		agents[key] = &Agent{
			Key:    key,
			Config: cfg,
			llm:    provider,
			tools:  registry,
			options: shared.CompletionOptions{
				Model:       opts.Model,
				MaxTokens:   opts.MaxTokens,
				Temperature: opts.Temperature,
			},
			maxIter: agentIter,
			verbose: opts.Verbose || cfg.Verbose,
			logger:  logger.With().Str("agent", key).Logger(),
		}
	}

	return &Crew{def: def, agents: agents, metrics: m, logger: logger}, nil
}

// FromConfig loads the agent and task files named in cfg and builds the crew.
// Model settings are left to the provider's own configuration.
func FromConfig(cfg config.CrewConfig, provider shared.LLMProvider, registry *tools.Registry, m *metrics.Collector, logger zerolog.Logger) (*Crew, error) {
	def, err := LoadDefinition(cfg.AgentsFile, cfg.TasksFile)
	if err != nil {
		return nil, err
	}
	return New(def, provider, registry, Options{
		MaxIterations: cfg.MaxIterations,
		Verbose:       cfg.Verbose,
	}, m, logger)
}

// Tasks returns the task names in run order
func (c *Crew) Tasks() []string {
	names := make([]string, 0, len(c.def.Tasks))
	for _, t := range c.def.Tasks {
		names = append(names, t.Name)
	}
	return names
}

// Kickoff runs every task in declared order. Inputs fill {placeholders} in
// task and agent text. A task sees the outputs of its context tasks, or of
// every earlier task when it declares no context.
func (c *Crew) Kickoff(ctx context.Context, inputs map[string]string) (*Output, error) {
	start := time.Now()
	out, err := c.kickoff(ctx, inputs)
	c.metrics.ObserveCrewRun(err == nil)
	if err != nil {
		c.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("crew run failed")
		return nil, err
	}
	out.Duration = time.Since(start)
	c.logger.Info().
		Int("tasks", len(out.Tasks)).
		Int("total_tokens", out.Usage.TotalTokens).
		Dur("duration", out.Duration).
		Msg("crew run finished")
	return out, nil
}

func (c *Crew) kickoff(ctx context.Context, inputs map[string]string) (*Output, error) {
	out := &Output{Tasks: make([]TaskOutput, 0, len(c.def.Tasks))}
	byName := make(map[string]TaskOutput, len(c.def.Tasks))

	for _, task := range c.def.Tasks {
		agent := c.agents[task.Agent]

		var related []TaskOutput
		if task.Context == nil {
			related = out.Tasks
		} else {
			for _, name := range task.Context {
				related = append(related, byName[name])
			}
		}

		description := Interpolate(task.Description, inputs)
		c.logger.Info().Str("task", task.Name).Str("agent", task.Agent).Msg("starting task")

		res, err := agent.Execute(ctx, Assignment{
			Description:    description,
			ExpectedOutput: Interpolate(task.ExpectedOutput, inputs),
			Context:        contextBlock(related),
			Tools:          task.Tools,
			Inputs:         inputs,
		})
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", task.Name, err)
		}

		taskOut := TaskOutput{
			Name:        task.Name,
			Agent:       task.Agent,
			Description: strings.TrimSpace(description),
			Raw:         res.Content,
			Usage:       res.Usage,
			Stats:       res.Stats,
		}
		out.Tasks = append(out.Tasks, taskOut)
		byName[task.Name] = taskOut
		out.Usage.Add(res.Usage)
		out.Raw = res.Content
	}
	return out, nil
}
