package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const upsertChunkSQL = `INSERT INTO chunks (id, document_id, content, embedding, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, now())
	ON CONFLICT (id) DO UPDATE SET
		document_id = EXCLUDED.document_id,
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding,
		metadata = EXCLUDED.metadata,
		created_at = EXCLUDED.created_at`

const queryChunksSQL = `SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
	FROM chunks
	ORDER BY embedding <=> $1
	LIMIT $2`

// Postgres is the pgvector-backed index. Vectors live in a `chunks` table
// with an `embedding vector(N)` column; similarity ranking is done by the
// database via the cosine distance operator.
//
// Postgres is safe for concurrent use by multiple goroutines.
type Postgres struct {
	pool   *pgxpool.Pool
	dim    int
	logger *slog.Logger
}

// NewPostgres creates a pgvector index over the given pool. dim must match
// the vector(N) column width created by the migrations.
func NewPostgres(pool *pgxpool.Pool, dim int, logger *slog.Logger) (*Postgres, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if dim <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dim)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{pool: pool, dim: dim, logger: logger}, nil
}

// Upsert inserts or replaces the chunk row for id. Content and document ID
// are lifted out of metadata into their own columns; the full metadata map
// is stored as jsonb alongside.
func (p *Postgres) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	if len(vector) != p.dim {
		return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), p.dim)
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for chunk %q: %w", id, err)
	}

	embedding := pgvector.NewVector(vector)
	_, err = p.pool.Exec(ctx, upsertChunkSQL,
		id, metadata[MetaDocumentID], metadata[MetaContent], &embedding, metaJSON)
	if err != nil {
		return fmt.Errorf("%w: upserting chunk %q: %v", ErrUnavailable, id, err)
	}

	p.logger.Debug("upserted chunk", "id", id, "document_id", metadata[MetaDocumentID])
	return nil
}

// Delete removes the chunk row for id. Deleting a missing id is a no-op.
func (p *Postgres) Delete(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM chunks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("%w: deleting chunk %q: %v", ErrUnavailable, id, err)
	}
	return nil
}

// DeleteByDocument removes every chunk belonging to documentID.
func (p *Postgres) DeleteByDocument(ctx context.Context, documentID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("%w: deleting chunks for document %q: %v", ErrUnavailable, documentID, err)
	}
	p.logger.Debug("deleted document chunks", "document_id", documentID, "count", tag.RowsAffected())
	return nil
}

// Query returns up to topK chunks ranked by descending cosine similarity.
// An empty table returns an empty result, not an error.
func (p *Postgres) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) != p.dim {
		return nil, fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(vector), p.dim)
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be >= 1, got %d", topK)
	}

	embedding := pgvector.NewVector(vector)
	rows, err := p.pool.Query(ctx, queryChunksSQL, &embedding, int32(topK)) // #nosec G115 -- topK validated above
	if err != nil {
		return nil, fmt.Errorf("%w: querying chunks: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var (
			id, content string
			metaJSON    []byte
			similarity  float64
		)
		if err := rows.Scan(&id, &content, &metaJSON, &similarity); err != nil {
			return nil, fmt.Errorf("%w: scanning chunk row: %v", ErrUnavailable, err)
		}

		var metadata map[string]string
		if err := json.Unmarshal(metaJSON, &metadata); err != nil {
			p.logger.Warn("unparseable chunk metadata", "id", id, "error", err)
			metadata = make(map[string]string)
		}

		matches = append(matches, Match{
			ID:       id,
			Content:  content,
			Score:    clampScore(float32(similarity)),
			Metadata: metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading chunk rows: %v", ErrUnavailable, err)
	}
	return matches, nil
}

// Count returns the number of chunk rows. Used by stats and tests.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	var count int64
	if err := p.pool.QueryRow(ctx, `SELECT count(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %v", ErrUnavailable, err)
	}
	return int(count), nil
}
