// Package models defines core data structures for chunks, documents, and operation results.
package models

import (
	"fmt"
	"time"
)

// ChunkMetadata describes where a chunk came from and how big it is.
type ChunkMetadata struct {
	SourceFile string    `json:"source_file"`
	ChunkIndex int       `json:"chunk_index"`
	CharCount  int       `json:"char_count"`
	WordCount  int       `json:"word_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// TextChunk is the atomic retrieval unit: an immutable span of source text
// with provenance metadata. Chunks are created once during ingestion and are
// only ever removed as part of whole-document deletion.
type TextChunk struct {
	ChunkID    string        `json:"chunk_id"`
	Content    string        `json:"content"`
	TokenCount int           `json:"token_count"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// ChunkID returns the deterministic chunk identifier for a source file and
// ordinal index. The same (source, index) pair always yields the same ID.
func ChunkID(sourceFile string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", sourceFile, index)
}
