package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// Default Gemini models. gemini-embedding-001 emits 3072 dimensions natively
// but supports truncation via OutputDimensionality (Matryoshka representation
// learning); the pgvector schema is sized for the truncated width.
const (
	DefaultEmbedModel = "gemini-embedding-001"
	DefaultModel      = "gemini-2.5-flash"
)

// GeminiConfig configures the Gemini-backed provider.
type GeminiConfig struct {
	APIKey     string
	Model      string  // completion model, defaults to DefaultModel
	EmbedModel string  // embedding model, defaults to DefaultEmbedModel
	Dimension  int     // embedding output dimensionality, required
	QPS        float64 // client-side request budget, 0 disables limiting
}

// Gemini provides embeddings and completions through the Gemini API.
// A single client-side rate limiter covers both call types: the provider
// quota is shared, so budgeting them together avoids burst-induced 429s.
//
// Gemini is safe for concurrent use by multiple goroutines.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
	dim        int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewGemini creates a Gemini provider. It validates configuration but does
// not call the API; the first Embed or Complete does.
func NewGemini(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.QPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QPS), 1)
	}

	return &Gemini{
		client:     client,
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
		dim:        cfg.Dimension,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// Dimension returns the fixed width of vectors produced by Embed.
func (g *Gemini) Dimension() int { return g.dim }

// Embed converts text into a fixed-dimension vector. Provider failures are
// classified as ErrEmbeddingUnavailable or ErrRateLimited.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	dim := int32(g.dim) // #nosec G115 -- validated positive and small in NewGemini
	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		&genai.EmbedContentConfig{OutputDimensionality: &dim},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: embed content: %v", classifyEmbed(err), err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding response", ErrEmbeddingUnavailable)
	}

	values := resp.Embeddings[0].Values
	if len(values) != g.dim {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d (model %q)",
			len(values), g.dim, g.embedModel)
	}
	return values, nil
}

// Complete sends a single prompt and returns the model's text response.
// Failures are classified as ErrCompletionUnavailable, ErrRateLimited or
// ErrContentFiltered; an empty response with no error from the SDK is
// treated as filtered output.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	if err := g.wait(ctx); err != nil {
		return "", err
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%w: generate content: %v", classify(err, ErrCompletionUnavailable), err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: model returned no text", ErrContentFiltered)
	}

	g.logger.Debug("completion", "model", g.model, "prompt_chars", len(prompt), "response_chars", len(text))
	return text, nil
}

// wait blocks until the rate limiter grants a slot, or the context ends.
func (g *Gemini) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// classifyEmbed mirrors classify but keeps rate limiting distinct from
// general embedding unavailability.
func classifyEmbed(err error) error {
	if classified := classify(err, ErrEmbeddingUnavailable); classified == ErrRateLimited {
		return ErrRateLimited
	}
	return ErrEmbeddingUnavailable
}
