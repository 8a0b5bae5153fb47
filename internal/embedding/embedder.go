// Package embedding provides text embedding via an external embedding
// service, with caching and failure isolation.
package embedding

import "context"

// Embedder produces vector embeddings for text.
//
// EmbedBatch is one-to-one and order-preserving. Implementations that talk
// to a remote provider substitute a zero vector for an item that fails to
// embed instead of failing the whole batch; callers must treat an all-zero
// vector as "unembeddable", not as a valid near-origin point.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	// Available probes the provider. Callers issue it before a batch that
	// must not silently degrade to zero vectors.
	Available(ctx context.Context) bool
	Close() error
}

// IsZeroVector reports whether every component of v is zero. A zero vector
// is the documented substitute for a failed per-item embedding.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
