// Package api serves the BotCrew HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/crew"
	"github.com/Kartavya-AI/ai-bot/internal/memory"
	"github.com/Kartavya-AI/ai-bot/internal/metrics"
)

// Runner answers a query by running the agent crew
type Runner interface {
	Kickoff(ctx context.Context, inputs map[string]string) (*crew.Output, error)
}

// Options wires the server's dependencies. Crew and History may be nil: the
// server still starts and reports the crew as not initialized.
type Options struct {
	Config  config.ServerConfig
	Crew    Runner
	History *memory.History
	Metrics *metrics.Collector
	Logger  zerolog.Logger
}

// Server is the HTTP front end of the crew
type Server struct {
	config     config.ServerConfig
	crew       Runner
	history    *memory.History
	metrics    *metrics.Collector
	logger     zerolog.Logger
	router     *mux.Router
	httpServer *http.Server
}

// NewServer creates the server and its routes
func NewServer(opts Options) *Server {
	s := &Server{
		config:  opts.Config,
		crew:    opts.Crew,
		history: opts.History,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", opts.Config.Host, opts.Config.Port),
		Handler:      s.router,
		ReadTimeout:  opts.Config.ReadTimeout,
		WriteTimeout: opts.Config.WriteTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.corsMiddleware)
	s.router.Use(s.metricsMiddleware)

	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost, http.MethodOptions)
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler { return s.router }

// CrewInitialized reports whether queries can be served
func (s *Server) CrewInitialized() bool { return s.crew != nil }

// ListenAndServe serves until Shutdown is called
func (s *Server) ListenAndServe() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Bool("bot_crew_initialized", s.CrewInitialized()).Msg("starting BotCrew API server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down within the configured
// shutdown timeout
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
