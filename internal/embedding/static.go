package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// StaticEmbedder is a deterministic, offline embedder for local runs and
// tests. Vectors are derived from a hash of the text, so equal texts get
// equal vectors.
type StaticEmbedder struct {
	Dim int
	Err error
}

// NewStaticEmbedder constructs a StaticEmbedder with the given dimension.
func NewStaticEmbedder(dim int) *StaticEmbedder {
	if dim <= 0 {
		dim = 8
	}
	return &StaticEmbedder{Dim: dim}
}

// Embed returns the deterministic vector for text, or the configured error.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.Err != nil {
		return nil, e.Err
	}
	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, e.Dim)
	for i := range vec {
		word := binary.BigEndian.Uint32(sum[(i*4)%28:])
		vec[i] = float32(word%1000) / 1000
	}
	return vec, nil
}

// Dimension returns the configured vector width.
func (e *StaticEmbedder) Dimension() int {
	return e.Dim
}
