//go:build integration
// +build integration

package knowledge_test

import (
	"context"
	"testing"

	"github.com/koopa0/sage/internal/index"
	"github.com/koopa0/sage/internal/knowledge"
	"github.com/koopa0/sage/internal/log"
	"github.com/koopa0/sage/internal/testutil"
)

// Run with: go test -tags=integration ./internal/knowledge -v

// TestStorePostgres_Integration exercises the full ingest path against a
// real pgvector instance: chunk, embed, upsert, query, replace, remove.
func TestStorePostgres_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	embedder := &testutil.Embedder{Dim: 768}

	idx, err := index.NewPostgres(db.Pool, 768, log.NewNop())
	if err != nil {
		t.Fatalf("NewPostgres() error = %v", err)
	}
	store, err := knowledge.New(embedder, idx, knowledge.StoreConfig{ChunkSize: 100, ChunkOverlap: 20}, log.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	content := ""
	for i := 0; i < 5; i++ {
		content += "Retrieval quality depends on how documents are chunked and embedded. "
	}

	doc := knowledge.Document{
		ID:         "guide",
		Content:    content,
		SourceType: knowledge.SourceTypeRaw,
		Metadata:   map[string]string{"title": "Chunking Guide"},
	}

	chunks, err := store.Ingest(ctx, doc)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}

	count, err := idx.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != len(chunks) {
		t.Errorf("index has %d rows, want %d", count, len(chunks))
	}

	// Query with the first chunk's own text; it must come back first.
	queryVec, err := embedder.Embed(ctx, chunks[0].Content)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	matches, err := idx.Query(ctx, queryVec, 3)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) == 0 || matches[0].ID != chunks[0].ID {
		t.Errorf("top match = %v, want %s", matches, chunks[0].ID)
	}
	if matches[0].Metadata["title"] != "Chunking Guide" {
		t.Errorf("title metadata = %q", matches[0].Metadata["title"])
	}

	// Re-ingest with shorter content; old chunks must be gone.
	doc.Content = "A much shorter document."
	newChunks, err := store.Reingest(ctx, doc.ID, doc)
	if err != nil {
		t.Fatalf("Reingest() error = %v", err)
	}
	if len(newChunks) != 1 {
		t.Fatalf("got %d chunks after reingest, want 1", len(newChunks))
	}
	if count, _ := idx.Count(ctx); count != 1 {
		t.Errorf("index has %d rows after reingest, want 1", count)
	}

	if err := store.Remove(ctx, doc.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if count, _ := idx.Count(ctx); count != 0 {
		t.Errorf("index has %d rows after remove, want 0", count)
	}
}
