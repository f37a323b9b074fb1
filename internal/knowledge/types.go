package knowledge

import (
	"fmt"
	"time"
)

// Source type constants recorded on every ingested document.
const (
	// SourceTypeRaw is plain text handed to the store directly (files, stdin).
	SourceTypeRaw = "raw"

	// SourceTypeWeb is text extracted from a fetched web page.
	SourceTypeWeb = "web"

	// SourceTypePDF is text pre-extracted from a PDF by an external tool.
	SourceTypePDF = "pdf"
)

// Document is the unit of ingestion. It is immutable once created: updating
// content means re-ingesting under the same ID, which replaces all chunks
// derived from the previous content.
type Document struct {
	ID         string
	Content    string
	SourceType string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Chunk is one embedded, indexed segment of a document. The ID is derived
// from the owning document and the segment's position, so re-ingesting the
// same content yields the same chunk IDs.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Seq        int
	Overlap    int // runes shared with the previous chunk, 0 for the first
}

// ChunkID derives the stable chunk identifier for a document segment.
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s:%d", documentID, seq)
}
