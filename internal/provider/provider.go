// Package provider implements the embedding and completion capabilities
// behind narrow interfaces consumed by the pipeline.
//
// The concrete backend is Gemini via google.golang.org/genai. Callers never
// see provider SDK types: embeddings come back as []float32 and completions
// as plain text, with failures classified into the package sentinel errors
// so retry policy can be decided upstream.
package provider

import (
	"errors"
	"strings"
)

// Sentinel errors classifying provider failures. All are checked with
// errors.Is; the distinction drives caller-side retry policy:
//
//   - ErrEmbeddingUnavailable / ErrCompletionUnavailable: transient backend
//     failure, retry with backoff is reasonable.
//   - ErrRateLimited: retry after a delay.
//   - ErrContentFiltered: terminal, never retried.
var (
	ErrEmbeddingUnavailable  = errors.New("embedding provider unavailable")
	ErrCompletionUnavailable = errors.New("completion provider unavailable")
	ErrRateLimited           = errors.New("provider rate limited")
	ErrContentFiltered       = errors.New("response blocked by content filter")
)

// containsAny reports whether s contains any of the substrings,
// case-insensitively.
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// classify maps a raw provider error onto the sentinel taxonomy. The genai
// SDK does not expose stable typed errors for every failure mode, so this
// matches on the response text the same way transient failures are detected
// elsewhere in the ecosystem.
func classify(err error, unavailable error) error {
	msg := err.Error()
	switch {
	case containsAny(msg, "rate limit", "quota", "resource_exhausted", "429"):
		return ErrRateLimited
	case containsAny(msg, "safety", "blocked", "prohibited_content"):
		return ErrContentFiltered
	default:
		return unavailable
	}
}
