// Package chunker splits raw text into overlapping fixed-size segments.
//
// Chunks are the unit of embedding and retrieval: each segment is small
// enough to embed as a single vector, and consecutive segments share a
// configurable overlap so that sentences cut at a boundary remain fully
// contained in at least one chunk.
//
// Windows are measured in runes, not bytes, so a multi-byte character is
// never split across two chunks. Chunking is deterministic: the same text
// and parameters always produce the same sequence, which keeps
// re-ingestion idempotent.
package chunker

import (
	"errors"
	"fmt"
)

// ErrInvalidChunking indicates unusable size/overlap parameters.
// Checked with errors.Is by callers that validate configuration up front.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Default window parameters. 1000 runes with a 200-rune overlap keeps each
// chunk comfortably inside common embedding-model input limits.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Span is a half-open [Start, End) rune range within the source text.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in runes.
func (s Span) Len() int { return s.End - s.Start }

// Spans computes the chunk boundaries for text without materializing the
// chunk strings. Each window after the first starts overlap runes before the
// previous window's end; the final window may be shorter than size.
//
// Constraints: size > 0 and 0 < overlap < size. Violations return
// ErrInvalidChunking. Empty input yields no spans; any non-empty input
// yields at least one.
func Spans(text string, size, overlap int) ([]Span, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidChunking, size)
	}
	if overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in (0, size), got overlap=%d size=%d",
			ErrInvalidChunking, overlap, size)
	}

	n := len([]rune(text))
	if n == 0 {
		return nil, nil
	}

	spans := make([]Span, 0, 1+(n-1)/(size-overlap))
	start := 0
	for {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
		if end == n {
			return spans, nil
		}
		start = end - overlap
	}
}

// Chunk splits text into overlapping windows of size runes and returns the
// chunk contents in order. See Spans for the boundary rules and parameter
// constraints.
func Chunk(text string, size, overlap int) ([]string, error) {
	spans, err := Spans(text, size, overlap)
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return nil, nil
	}

	runes := []rune(text)
	chunks := make([]string, len(spans))
	for i, s := range spans {
		chunks[i] = string(runes[s.Start:s.End])
	}
	return chunks, nil
}
