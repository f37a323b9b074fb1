package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"github.com/koopa0/sage/internal/app"
	"github.com/koopa0/sage/internal/config"
)

// runAsk answers a single question from the indexed corpus.
func runAsk(args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: sage ask <question>")
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

	result, err := a.Pipeline.Ask(ctx, question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(result.Answer.Text)
	if result.Answer.UsedContext && len(result.Sources) > 0 {
		fmt.Println()
		fmt.Printf("Sources (confidence %.2f):\n", result.Confidence)
		for _, src := range result.Sources {
			fmt.Printf("  - %s\n", src)
		}
	}
	return nil
}
