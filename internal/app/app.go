// Package app assembles the BotCrew components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/api"
	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/crew"
	"github.com/Kartavya-AI/ai-bot/internal/ingest"
	"github.com/Kartavya-AI/ai-bot/internal/llm"
	"github.com/Kartavya-AI/ai-bot/internal/llm/shared"
	"github.com/Kartavya-AI/ai-bot/internal/memory"
	"github.com/Kartavya-AI/ai-bot/internal/metrics"
	"github.com/Kartavya-AI/ai-bot/internal/search"
	"github.com/Kartavya-AI/ai-bot/internal/tools"
	"github.com/Kartavya-AI/ai-bot/internal/vector"
	"github.com/Kartavya-AI/ai-bot/pkg/interfaces"
)

// Component names used in Err
const (
	ComponentLLM    = "llm"
	ComponentVector = "vector"
	ComponentMemory = "memory"
	ComponentSearch = "search"
	ComponentCrew   = "crew"
)

// App holds every component built from one configuration. Components that
// fail to build are left nil and their error is kept, so the API can start
// and report the crew as not initialized.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Metrics *metrics.Collector

	LLM     shared.LLMProvider
	Vector  interfaces.VectorStore
	Memory  interfaces.MemoryStore
	History *memory.History
	Search  interfaces.WebSearcher
	Tools   *tools.Registry
	Crew    *crew.Crew

	errs map[string]error
}

// Overrides replaces components before the crew is assembled. Tests use it
// to swap hosted services for fakes.
type Overrides struct {
	LLM    shared.LLMProvider
	Vector interfaces.VectorStore
	Memory interfaces.MemoryStore
	Search interfaces.WebSearcher
}

// New builds the application. It never fails: see Err for components that
// could not be created.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *App {
	return NewWithOverrides(ctx, cfg, logger, Overrides{})
}

// NewWithOverrides builds the application using any non-nil override in
// place of the configured component
func NewWithOverrides(ctx context.Context, cfg *config.Config, logger zerolog.Logger, o Overrides) *App {
	a := &App{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(),
		errs:    make(map[string]error),
	}

	if o.LLM != nil {
		a.LLM = llm.Instrument(o.LLM, a.Metrics)
	} else if p, err := llm.NewProvider(cfg.LLM); err != nil {
		a.fail(ComponentLLM, err)
	} else {
		a.LLM = llm.Instrument(p, a.Metrics)
	}

	if o.Vector != nil {
		a.Vector = o.Vector
	} else if store, err := vector.NewStore(ctx, cfg.Vector, cfg.Embeddings, logger); err != nil {
		a.fail(ComponentVector, err)
	} else {
		a.Vector = store
	}

	if o.Memory != nil {
		a.Memory = o.Memory
	} else if store, err := memory.NewStore(cfg, a.Metrics, logger); err != nil {
		a.fail(ComponentMemory, err)
	} else {
		a.Memory = store
	}
	if a.Memory != nil {
		a.History = memory.NewHistory(a.Memory, cfg.Memory.DefaultUserID, logger)
	}

	if o.Search != nil {
		a.Search = o.Search
	} else if client, err := search.NewSerperClient(cfg.Search, cfg.Transport, a.Metrics, logger); err != nil {
		a.fail(ComponentSearch, err)
	} else {
		a.Search = client
	}

	a.Tools = tools.NewRegistry(a.Metrics, logger)
	if a.Memory != nil {
		a.Tools.Register(tools.NewMemoryTool(a.Memory, cfg.Memory.SearchLimit))
	}
	if a.Vector != nil {
		a.Tools.Register(tools.NewDocumentSearchTool(a.Vector, cfg.Vector.TopK))
	}
	if a.Search != nil {
		a.Tools.Register(tools.NewWebSearchTool(a.Search))
	}

	a.buildCrew()
	return a
}

func (a *App) buildCrew() {
	if a.LLM == nil {
		a.fail(ComponentCrew, fmt.Errorf("no llm provider: %w", a.errs[ComponentLLM]))
		return
	}
	c, err := crew.FromConfig(a.Config.Crew, a.LLM, a.Tools, a.Metrics, a.Logger)
	if err != nil {
		a.fail(ComponentCrew, err)
		return
	}
	a.Crew = c
	a.Logger.Info().Strs("tasks", c.Tasks()).Strs("tools", a.Tools.List()).Msg("BotCrew initialized")
}

func (a *App) fail(component string, err error) {
	a.errs[component] = err
	a.Logger.Error().Err(err).Str("component", component).Msg("failed to initialize component")
}

// Err returns the build error of a component, or nil when it is available
func (a *App) Err(component string) error {
	return a.errs[component]
}

// Failed lists the components that could not be built
func (a *App) Failed() []string {
	names := make([]string, 0, len(a.errs))
	for name := range a.errs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Server creates the HTTP API around the application
func (a *App) Server() *api.Server {
	opts := api.Options{
		Config:  a.Config.Server,
		History: a.History,
		Metrics: a.Metrics,
		Logger:  a.Logger,
	}
	if a.Crew != nil {
		opts.Crew = a.Crew
	}
	return api.NewServer(opts)
}

// Pipeline creates the ingest pipeline over the vector store
func (a *App) Pipeline() (*ingest.Pipeline, error) {
	if a.Vector == nil {
		return nil, fmt.Errorf("vector store unavailable: %w", a.errs[ComponentVector])
	}
	return ingest.NewPipeline(a.Vector, a.Config.Ingest, a.Metrics, a.Logger), nil
}

// Close releases the stores
func (a *App) Close() error {
	var errs []error
	if a.Vector != nil {
		errs = append(errs, a.Vector.Close())
	}
	if a.Memory != nil {
		errs = append(errs, a.Memory.Close())
	}
	return errors.Join(errs...)
}
