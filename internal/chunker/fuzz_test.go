package chunker

import (
	"strings"
	"testing"
)

// FuzzChunkCoverage checks the reconstruction invariant for arbitrary inputs:
// chunks with overlaps removed must concatenate back to the original text,
// and every chunk except the last must be exactly size runes long.
func FuzzChunkCoverage(f *testing.F) {
	f.Add("", 10, 3)
	f.Add("hello world", 4, 1)
	f.Add(strings.Repeat("A", 2500), 1000, 200)
	f.Add("héllo wörld 你好世界", 5, 2)
	f.Add("\x00\xff mixed bytes", 8, 3)

	f.Fuzz(func(t *testing.T, text string, size, overlap int) {
		chunks, err := Chunk(text, size, overlap)
		if size <= 0 || overlap <= 0 || overlap >= size {
			if err == nil {
				t.Fatalf("Chunk(size=%d, overlap=%d) accepted invalid parameters", size, overlap)
			}
			return
		}
		if err != nil {
			t.Fatalf("Chunk() error = %v", err)
		}

		runes := []rune(text)
		if len(runes) == 0 {
			if len(chunks) != 0 {
				t.Fatalf("empty input produced %d chunks", len(chunks))
			}
			return
		}

		var b strings.Builder
		for i, c := range chunks {
			cr := []rune(c)
			if i < len(chunks)-1 && len(cr) != size {
				t.Fatalf("chunk %d has %d runes, want %d", i, len(cr), size)
			}
			if i == 0 {
				b.WriteString(c)
			} else {
				b.WriteString(string(cr[overlap:]))
			}
		}
		if b.String() != text {
			t.Fatal("reconstructed text differs from input")
		}
	})
}
