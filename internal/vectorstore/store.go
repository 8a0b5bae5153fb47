// Package vectorstore provides vector record storage and similarity search
// over pluggable backends.
package vectorstore

import (
	"context"

	"github.com/TWAKATitan/Local-RAG/internal/models"
)

// Record is one stored (chunk, embedding) pair. Records are owned by the
// store; every record's ChunkID corresponds to a TextChunk produced during
// some ingestion run.
type Record struct {
	ChunkID string
	Vector  []float32
	Content string
	Meta    models.ChunkMetadata
}

// Hit is a single search result. Distance is the backend's raw score; its
// scale is backend-specific (squared Euclidean for the built-in backends,
// whatever the remote service reports for external ones). Callers convert
// it to a bounded similarity with a similarity Converter.
type Hit struct {
	Record   Record
	Distance float64
}

// Stats describes a store's contents and identity.
type Stats struct {
	Count          int    `json:"total_chunks"`
	Backend        string `json:"backend"`
	EmbeddingModel string `json:"embedding_model"`
}

// Predicate selects records by metadata.
type Predicate func(meta models.ChunkMetadata) bool

// BySource matches every record belonging to sourceFile.
func BySource(sourceFile string) Predicate {
	return func(meta models.ChunkMetadata) bool {
		return meta.SourceFile == sourceFile
	}
}

// Store is the backend abstraction every vector index implements.
//
// Add is idempotent on resubmission: a record with an existing ChunkID
// overwrites the previous one. A failing batch must not lose or corrupt
// records added by earlier batches.
//
// Search returns at most k hits ordered best-first by raw distance; an
// empty store yields an empty result, not an error.
//
// DeleteWhere removes every record whose metadata matches pred. It is
// all-or-nothing from the caller's perspective, or its error names exactly
// which matching IDs were not removed.
type Store interface {
	Add(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, k int) ([]Hit, error)
	DeleteWhere(ctx context.Context, pred Predicate) (int, error)
	// Sources returns the set of source identities present, with the number
	// of records each owns. Used by reconciliation.
	Sources(ctx context.Context) (map[string]int, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
	Close() error
}
