// Package keyword provides BM25 keyword search over ingested chunks,
// as an alternative retrieval path to vector search.
package keyword

import (
	"context"
)

// Hit is a single keyword search result.
type Hit struct {
	ChunkID    string
	SourceFile string
	ChunkIndex int
	Content    string
	Score      float64
}

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
}

// Index defines keyword search operations over chunks.
type Index interface {
	// IndexChunks adds or replaces chunks in the index.
	IndexChunks(ctx context.Context, chunks []ChunkDoc) error
	// Search returns up to limit chunks matching the query, best first.
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error)
	// DeleteBySource removes all chunks of a source file. Returns how many
	// were removed.
	DeleteBySource(ctx context.Context, sourceFile string) (int, error)
	// Count returns the number of indexed chunks.
	Count() (uint64, error)
	// Clear removes everything from the index.
	Clear(ctx context.Context) error
	Close() error
}

// ChunkDoc is the indexable form of a chunk.
type ChunkDoc struct {
	ChunkID    string `json:"id"`
	SourceFile string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}
