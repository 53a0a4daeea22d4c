package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Kartavya-AI/ai-bot/internal/app"
	"github.com/Kartavya-AI/ai-bot/internal/config"
	"github.com/Kartavya-AI/ai-bot/internal/logging"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// BOTCREW_CONFIG is optional; without it defaults and the environment apply
	cfg, err := config.Load(os.Getenv("BOTCREW_CONFIG"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := app.New(ctx, cfg, logger)
	defer a.Close()

	if err := a.Server().Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
