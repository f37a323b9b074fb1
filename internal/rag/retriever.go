package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/koopa0/sage/internal/index"
)

// ErrInvalidTopK indicates a retrieval request for fewer than one match.
var ErrInvalidTopK = errors.New("topK must be >= 1")

// DefaultTopK is the number of matches retrieved when the caller does not
// ask for a specific amount.
const DefaultTopK = 5

// Embedder converts a query string into a vector. Defined by the consumer;
// satisfied by provider.Gemini and test mocks.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the query surface of the vector index.
type Searcher interface {
	Query(ctx context.Context, vector []float32, topK int) ([]index.Match, error)
}

// Retriever embeds queries and searches the vector index for the closest
// chunks.
type Retriever struct {
	embedder Embedder
	searcher Searcher
	logger   *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, searcher Searcher, logger *slog.Logger) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{embedder: embedder, searcher: searcher, logger: logger}, nil
}

// Retrieve embeds query and returns up to topK matches ranked by descending
// similarity. An empty index yields an empty result, never an error; backend
// failures propagate unmodified so callers can distinguish "no evidence"
// from "search broken".
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]index.Match, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	matches, err := r.searcher.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	// Backends order results, but the descending-score invariant is ours to
	// keep. Stable so equal scores keep the backend's order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	r.logger.Debug("retrieved", "query_chars", len(query), "top_k", topK, "matches", len(matches))
	return matches, nil
}
