package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gofrs/flock"

	"github.com/koopa0/sage/internal/app"
	"github.com/koopa0/sage/internal/config"
)

// runIngest adds a file, directory tree or URL to the knowledge base.
// A file lock serializes ingest runs: two concurrent passes over the same
// corpus would race each other's reingest cycles.
func runIngest(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: sage ingest <path|url>")
	}
	target := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	lock, err := acquireIngestLock()
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

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

	switch {
	case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
		docID, err := a.Web.AddURL(ctx, target)
		if err != nil {
			return fmt.Errorf("ingesting url: %w", err)
		}
		fmt.Printf("Ingested %s as %s\n", target, docID)
		return nil

	default:
		info, err := os.Stat(target)
		if err != nil {
			return fmt.Errorf("inspecting %s: %w", target, err)
		}
		if info.IsDir() {
			result, err := a.Files.AddDirectory(ctx, target)
			if err != nil {
				return fmt.Errorf("ingesting directory: %w", err)
			}
			fmt.Printf("Ingested %d files (%d chunks, %d skipped, %d failed) in %v\n",
				result.FilesAdded, result.ChunksAdded, result.FilesSkipped, result.FilesFailed, result.Duration)
			return nil
		}
		docID, err := a.Files.AddFile(ctx, target)
		if err != nil {
			return fmt.Errorf("ingesting file: %w", err)
		}
		fmt.Printf("Ingested %s as %s\n", target, docID)
		return nil
	}
}

// acquireIngestLock takes the per-user ingest lock without blocking. A held
// lock means another ingest is running; tell the user instead of queueing.
func acquireIngestLock() (*flock.Flock, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	dir := filepath.Join(home, ".sage")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "ingest.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring ingest lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another ingest is already running (lock held at %s)", lock.Path())
	}
	return lock, nil
}
