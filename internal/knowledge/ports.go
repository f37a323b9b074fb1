package knowledge

import (
	"context"

	"github.com/koopa0/sage/internal/index"
)

// Embedder converts text into a fixed-dimension vector. Interfaces are
// defined here, by the consumer, so any backend satisfying them plugs in
// without touching store logic (provider.Gemini in production, mocks in
// tests).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension is the fixed width of vectors from Embed. It must not
	// change for the lifetime of the index the store writes to.
	Dimension() int
}

// Index is the vector index surface the store needs. Satisfied by
// index.Postgres and index.Memory.
type Index interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	DeleteByDocument(ctx context.Context, documentID string) error
	Query(ctx context.Context, vector []float32, topK int) ([]index.Match, error)
}
