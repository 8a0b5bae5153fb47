package models

import "time"

// StorageStatusPermanent marks a document whose chunks are persisted in the
// vector index.
const StorageStatusPermanent = "permanent"

// Document is a registry entry for a processed document. The registry is a
// cache, not the source of truth: entries can be reconstructed by scanning
// the documents directory and cross-checking the vector index. Entries are
// replaced wholesale, never partially updated.
type Document struct {
	Filename       string        `json:"filename"`
	OriginalPath   string        `json:"original_path"`
	ProcessedAt    time.Time     `json:"processed_at"`
	ProcessingTime time.Duration `json:"processing_time"`
	PageCount      int           `json:"page_count"`
	CharacterCount int           `json:"character_count"`
	ChunkCount     int           `json:"chunk_count"`
	StorageStatus  string        `json:"storage_status"`
}
