// Package knowledge implements the document store: it turns raw documents
// into embedded, indexed chunks and keeps that mapping consistent across
// re-ingestion.
//
// Ingestion is all-or-nothing per document. If embedding or indexing fails
// partway through, every chunk already written for that document is removed
// again, so the index never holds a partial document. Ingestion of distinct
// documents may run concurrently; ingestion of the same document ID is
// serialized.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/koopa0/sage/internal/chunker"
	"github.com/koopa0/sage/internal/index"
)

const tracerName = "sage/knowledge"

// StoreConfig holds chunking parameters for the store.
type StoreConfig struct {
	ChunkSize    int // runes per chunk, defaults to chunker.DefaultSize
	ChunkOverlap int // runes shared between consecutive chunks, defaults to chunker.DefaultOverlap
}

// Store orchestrates chunking, embedding and indexing.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	embedder Embedder
	idx      Index
	cfg      StoreConfig
	logger   *slog.Logger

	mu    sync.Mutex // guards locks
	locks map[string]*sync.Mutex
}

// New creates a Store. Chunking parameters are validated eagerly so a
// misconfigured store fails at startup, not on first ingest.
func New(embedder Embedder, idx Index, cfg StoreConfig, logger *slog.Logger) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("index is required")
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = chunker.DefaultSize
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = chunker.DefaultOverlap
	}
	if _, err := chunker.Spans("x", cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		embedder: embedder,
		idx:      idx,
		cfg:      cfg,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// Ingest chunks, embeds and indexes a document, returning the chunks it
// produced. Concurrent ingests of the same document ID are serialized;
// distinct IDs proceed independently.
func (s *Store) Ingest(ctx context.Context, doc Document) ([]Chunk, error) {
	if doc.ID == "" {
		return nil, fmt.Errorf("document ID is required")
	}

	lock := s.lockFor(doc.ID)
	lock.Lock()
	defer lock.Unlock()

	return s.ingestLocked(ctx, doc)
}

// Reingest removes all chunks previously indexed for documentID, then
// ingests the new content under the same ID.
func (s *Store) Reingest(ctx context.Context, documentID string, doc Document) ([]Chunk, error) {
	if documentID == "" {
		return nil, fmt.Errorf("document ID is required")
	}
	doc.ID = documentID

	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.idx.DeleteByDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("removing previous chunks for %q: %w", documentID, err)
	}
	return s.ingestLocked(ctx, doc)
}

// Remove deletes every indexed chunk for documentID.
func (s *Store) Remove(ctx context.Context, documentID string) error {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	return s.idx.DeleteByDocument(ctx, documentID)
}

func (s *Store) ingestLocked(ctx context.Context, doc Document) ([]Chunk, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "knowledge.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.id", doc.ID),
		attribute.Int("document.chars", len(doc.Content)),
	)

	spans, err := chunker.Spans(doc.Content, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, nil
	}

	runes := []rune(doc.Content)
	indexedAt := time.Now().UTC().Format(time.RFC3339)
	title := doc.Metadata[index.MetaTitle]
	if title == "" {
		title = doc.ID
	}

	chunks := make([]Chunk, 0, len(spans))
	for seq, sp := range spans {
		chunk := Chunk{
			ID:         ChunkID(doc.ID, seq),
			DocumentID: doc.ID,
			Content:    string(runes[sp.Start:sp.End]),
			Seq:        seq,
		}
		if seq > 0 {
			chunk.Overlap = s.cfg.ChunkOverlap
		}

		vector, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			s.rollback(doc.ID, chunks)
			return nil, fmt.Errorf("embedding chunk %q: %w", chunk.ID, err)
		}

		meta := map[string]string{
			index.MetaContent:    chunk.Content,
			index.MetaDocumentID: chunk.DocumentID,
			index.MetaSeq:        fmt.Sprintf("%d", chunk.Seq),
			index.MetaTitle:      title,
			index.MetaSourceType: doc.SourceType,
			index.MetaIndexedAt:  indexedAt,
		}
		for k, v := range doc.Metadata {
			if _, reserved := meta[k]; !reserved {
				meta[k] = v
			}
		}

		if err := s.idx.Upsert(ctx, chunk.ID, vector, meta); err != nil {
			s.rollback(doc.ID, chunks)
			return nil, fmt.Errorf("indexing chunk %q: %w", chunk.ID, err)
		}

		chunks = append(chunks, chunk)
	}

	s.logger.Debug("ingested document",
		"id", doc.ID,
		"source_type", doc.SourceType,
		"chunks", len(chunks),
	)
	return chunks, nil
}

// rollback removes chunks that were upserted before an ingest failed, so the
// index holds either all of a document's chunks or none. Runs on a fresh
// context: the original one may already be canceled, and a half-indexed
// document is worse than a slow cleanup.
func (s *Store) rollback(documentID string, upserted []Chunk) {
	if len(upserted) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := 0
	for _, chunk := range upserted {
		if err := s.idx.Delete(ctx, chunk.ID); err != nil {
			failed++
			s.logger.Warn("rollback delete failed", "chunk_id", chunk.ID, "error", err)
		}
	}
	s.logger.Debug("rolled back partial ingest",
		"document_id", documentID,
		"chunks", len(upserted),
		"failed_deletes", failed,
	)
}

// lockFor returns the mutex serializing operations on one document ID.
// Entries are never removed; the map grows with the number of distinct
// documents ever ingested by this process, which is small in practice.
func (s *Store) lockFor(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[documentID] = lock
	}
	return lock
}
