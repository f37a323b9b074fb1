package rag

import (
	"context"
	"errors"
	"testing"

	"github.com/koopa0/sage/internal/index"
	"github.com/koopa0/sage/internal/log"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return s.vector, s.err
}

type stubSearcher struct {
	matches []index.Match
	err     error
	lastK   int
}

func (s *stubSearcher) Query(_ context.Context, _ []float32, topK int) ([]index.Match, error) {
	s.lastK = topK
	return s.matches, s.err
}

func TestRetrieveInvalidTopK(t *testing.T) {
	r, err := NewRetriever(&stubEmbedder{vector: []float32{1}}, &stubSearcher{}, log.NewNop())
	if err != nil {
		t.Fatalf("NewRetriever() error = %v", err)
	}

	for _, k := range []int{0, -1} {
		if _, err := r.Retrieve(context.Background(), "q", k); !errors.Is(err, ErrInvalidTopK) {
			t.Errorf("Retrieve(topK=%d) error = %v, want ErrInvalidTopK", k, err)
		}
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r, _ := NewRetriever(&stubEmbedder{vector: []float32{1}}, &stubSearcher{}, log.NewNop())

	matches, err := r.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Retrieve() on empty index error = %v, want nil", err)
	}
	if len(matches) != 0 {
		t.Errorf("Retrieve() = %d matches, want 0", len(matches))
	}
}

func TestRetrievePropagatesErrors(t *testing.T) {
	embedErr := errors.New("embedder down")
	r, _ := NewRetriever(&stubEmbedder{err: embedErr}, &stubSearcher{}, log.NewNop())
	if _, err := r.Retrieve(context.Background(), "q", 3); !errors.Is(err, embedErr) {
		t.Errorf("Retrieve() error = %v, want wrapped embedder error", err)
	}

	searchErr := errors.New("index down")
	r, _ = NewRetriever(&stubEmbedder{vector: []float32{1}}, &stubSearcher{err: searchErr}, log.NewNop())
	if _, err := r.Retrieve(context.Background(), "q", 3); !errors.Is(err, searchErr) {
		t.Errorf("Retrieve() error = %v, want wrapped searcher error", err)
	}
}

func TestRetrieveReordersByScore(t *testing.T) {
	// A backend returning unordered matches must not leak that order out.
	searcher := &stubSearcher{matches: []index.Match{
		{ID: "b", Score: 0.5},
		{ID: "a", Score: 0.9},
		{ID: "c", Score: 0.7},
	}}
	r, _ := NewRetriever(&stubEmbedder{vector: []float32{1}}, searcher, log.NewNop())

	matches, err := r.Retrieve(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i-1].Score < matches[i].Score {
			t.Errorf("matches out of order at %d: %v < %v", i, matches[i-1].Score, matches[i].Score)
		}
	}
	if matches[0].ID != "a" {
		t.Errorf("matches[0].ID = %q, want a", matches[0].ID)
	}

	if searcher.lastK != 3 {
		t.Errorf("searcher received topK = %d, want 3", searcher.lastK)
	}
}
