// Package embedding turns text into vectors for the answer index.
package embedding

import "context"

// Embedder produces a fixed-dimension vector for a piece of text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
