// Package app provides application initialization and dependency wiring.
//
// Setup builds the full component graph from configuration: provider,
// database pool, vector index, knowledge store, answer pipeline, agent
// orchestrator and source loaders. Commands consume the container instead
// of wiring components themselves.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/koopa0/sage/internal/agent"
	"github.com/koopa0/sage/internal/config"
	"github.com/koopa0/sage/internal/index"
	"github.com/koopa0/sage/internal/knowledge"
	"github.com/koopa0/sage/internal/observability"
	"github.com/koopa0/sage/internal/provider"
	"github.com/koopa0/sage/internal/rag"
	"github.com/koopa0/sage/internal/source"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Provider     *provider.Gemini
	Pool         *pgxpool.Pool
	Index        *index.Postgres
	Knowledge    *knowledge.Store
	Pipeline     *rag.Pipeline
	Orchestrator *agent.Orchestrator
	Files        *source.Files
	Web          *source.Web

	shutdownTracing func(context.Context) error
}

// Setup builds the application from configuration. The caller owns the
// returned App and must Close it.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	gemini, err := provider.NewGemini(ctx, provider.GeminiConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		EmbedModel: cfg.EmbedModel,
		Dimension:  cfg.EmbedDim,
		QPS:        cfg.ProviderQPS,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: pinging database: %v", index.ErrUnavailable, err)
	}

	idx, err := index.NewPostgres(pool, cfg.EmbedDim, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	store, err := knowledge.New(gemini, idx, knowledge.StoreConfig{
		ChunkSize:    cfg.ChunkSize,
		ChunkOverlap: cfg.ChunkOverlap,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	retriever, err := rag.NewRetriever(gemini, idx, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating retriever: %w", err)
	}
	generator, err := rag.NewGenerator(gemini, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	pipeline, err := rag.NewPipeline(retriever, rag.NewAssembler(cfg.ContextBudget), generator, cfg.TopK, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating pipeline: %w", err)
	}

	orchestrator, err := agent.New(pipeline, generator, logger,
		agent.WithResearchWorkers(cfg.ResearchWorkers))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	files, err := source.NewFiles(store, nil, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating file loader: %w", err)
	}
	web, err := source.NewWeb(store, nil, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating web loader: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		Provider:        gemini,
		Pool:            pool,
		Index:           idx,
		Knowledge:       store,
		Pipeline:        pipeline,
		Orchestrator:    orchestrator,
		Files:           files,
		Web:             web,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Close shuts down all resources, flushing pending trace spans first.
func (a *App) Close() error {
	a.Logger.Debug("shutting down application")

	var err error
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if terr := a.shutdownTracing(ctx); terr != nil {
			err = fmt.Errorf("flushing traces: %w", terr)
		}
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
	return err
}
