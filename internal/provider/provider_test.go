package provider

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"http 429", errors.New("googleapi: Error 429: rate limit exceeded"), ErrRateLimited},
		{"quota", errors.New("RESOURCE_EXHAUSTED: quota exceeded for model"), ErrRateLimited},
		{"safety block", errors.New("candidate blocked due to SAFETY"), ErrContentFiltered},
		{"server error", errors.New("503 service unavailable"), ErrCompletionUnavailable},
		{"network", errors.New("connection reset by peer"), ErrCompletionUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err, ErrCompletionUnavailable); !errors.Is(got, tt.want) {
				t.Errorf("classify(%q) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyEmbedNeverFiltered(t *testing.T) {
	// Embedding calls have no content filter; a safety-worded backend error
	// must still surface as an availability problem.
	got := classifyEmbed(errors.New("request blocked"))
	if !errors.Is(got, ErrEmbeddingUnavailable) {
		t.Errorf("classifyEmbed() = %v, want ErrEmbeddingUnavailable", got)
	}

	if got := classifyEmbed(errors.New("429 too many requests")); !errors.Is(got, ErrRateLimited) {
		t.Errorf("classifyEmbed(429) = %v, want ErrRateLimited", got)
	}
}
