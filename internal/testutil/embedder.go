package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// Embedder produces deterministic unit vectors derived from the input
// text, so integration tests can exercise real index storage and
// similarity ranking without a provider account. Identical text always
// embeds to the identical vector; different text almost certainly does
// not.
type Embedder struct {
	Dim int
}

// Embed hashes text into a normalized pseudo-random vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.Dim)

	// Stretch the hash over the vector by re-hashing with a counter.
	seed := sha256.Sum256([]byte(text))
	var block [32]byte = seed
	for i := 0; i < e.Dim; i++ {
		if i%8 == 0 && i > 0 {
			counter := [4]byte{}
			binary.BigEndian.PutUint32(counter[:], uint32(i)) // #nosec G115 -- loop index is non-negative
			block = sha256.Sum256(append(block[:], counter[:]...))
		}
		bits := binary.BigEndian.Uint32(block[(i%8)*4 : (i%8)*4+4])
		vec[i] = float32(bits)/float32(math.MaxUint32) - 0.5
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// Dimension returns the configured vector width.
func (e *Embedder) Dimension() int { return e.Dim }
