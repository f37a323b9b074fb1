package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koopa0/sage/internal/agent"
	"github.com/koopa0/sage/internal/app"
	"github.com/koopa0/sage/internal/config"
)

// runResearch answers a complex question through the full plan → research →
// synthesize loop.
func runResearch(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: sage research <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Orchestrator.Run(ctx, question)
	if err != nil {
		var stErr *agent.StateError
		if errors.As(err, &stErr) {
			// Name how far the run got so a retry is an informed choice.
			if stErr.State == agent.StateResearching {
				return fmt.Errorf("run failed while researching step %d of the plan: %w", stErr.Step+1, stErr.Err)
			}
			return fmt.Errorf("run failed while %s: %w", stErr.State, stErr.Err)
		}
		return fmt.Errorf("research run: %w", err)
	}

	fmt.Printf("Run %s\n\nPlan:\n", result.RunID)
	for i, step := range result.Plan {
		fmt.Printf("  %d. %s\n", i+1, step)
	}
	fmt.Printf("\n%s\n", result.FinalAnswer)
	return nil
}
