// Package index provides vector index backends for chunk embeddings.
//
// The package exposes two interchangeable backends behind the same
// operation set (upsert, delete, delete-by-document, query):
//
//   - Postgres: PostgreSQL + pgvector, the production backend. Cosine
//     similarity is computed by the database (`embedding <=> query`).
//   - Memory: a brute-force in-process store for tests and for running
//     without a database.
//
// Both enforce a fixed embedding dimension per instance: mixing
// dimensions corrupts similarity ranking, so a mismatched vector is
// rejected with ErrDimensionMismatch before it reaches storage.
package index

import "errors"

var (
	// ErrUnavailable indicates the index backend failed; the operation may
	// succeed on retry. Wrapped around the backend error, checked with
	// errors.Is.
	ErrUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// dimension the index was created with. This is a hard error, never
	// retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Metadata keys every upserted chunk carries. The content and owning
// document ID are lifted out of the metadata map into dedicated storage
// columns; the rest is stored as-is.
const (
	MetaContent    = "content"
	MetaDocumentID = "document_id"
	MetaTitle      = "title"
	MetaSeq        = "seq"
	MetaSourceType = "source_type"
	MetaIndexedAt  = "indexed_at"
)

// Match is a single ranked query result. Score is cosine similarity
// clamped to [0, 1], higher meaning closer.
type Match struct {
	ID       string
	Content  string
	Score    float32
	Metadata map[string]string
}

// clampScore bounds a raw cosine similarity to [0, 1]. pgvector's cosine
// distance ranges over [0, 2], so 1-distance can be slightly negative for
// anti-correlated vectors.
func clampScore(s float32) float32 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
