package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Memory is a brute-force in-process vector index. Queries score every
// stored vector by cosine similarity, so it is only suitable for tests and
// small corpora.
//
// Memory is safe for concurrent use by multiple goroutines.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]memoryEntry
}

type memoryEntry struct {
	vector   []float32
	content  string
	metadata map[string]string
}

// NewMemory creates an in-memory index for vectors of the given dimension.
func NewMemory(dim int) (*Memory, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	return &Memory{
		dim:     dim,
		entries: make(map[string]memoryEntry),
	}, nil
}

// Upsert stores or replaces the vector and metadata for id.
func (m *Memory) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != m.dim {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), m.dim)
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = memoryEntry{
		vector:   vec,
		content:  metadata[MetaContent],
		metadata: meta,
	}
	return nil
}

// Delete removes the entry for id. Deleting a missing id is a no-op.
func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

// DeleteByDocument removes every entry whose document_id metadata matches.
func (m *Memory) DeleteByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, e := range m.entries {
		if e.metadata[MetaDocumentID] == documentID {
			delete(m.entries, id)
		}
	}
	return nil
}

// Query returns up to topK entries ranked by descending cosine similarity.
// An empty index returns an empty result, not an error. Ties are broken by
// id so results are deterministic.
func (m *Memory) Query(_ context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), m.dim)
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be >= 1, got %d", topK)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.entries))
	for id, e := range m.entries {
		matches = append(matches, Match{
			ID:       id,
			Content:  e.content,
			Score:    clampScore(cosine(vector, e.vector)),
			Metadata: e.metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Count returns the number of stored entries.
func (m *Memory) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// cosine computes cosine similarity between two equal-length vectors.
// Zero vectors score 0.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
