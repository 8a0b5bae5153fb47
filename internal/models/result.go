package models

import "time"

// Store names used in DeleteResult.Removed / Failed.
const (
	StoreVectors   = "vectors"
	StoreKeywords  = "keywords"
	StoreFile      = "file"
	StoreArtifacts = "artifacts"
	StoreRegistry  = "registry"
)

// IngestResult reports a completed document ingestion.
type IngestResult struct {
	Filename     string        `json:"filename"`
	PageCount    int           `json:"page_count"`
	CharCount    int           `json:"char_count"`
	ChunkCount   int           `json:"chunk_count"`
	ExtractTime  time.Duration `json:"extract_time"`
	EmbedTime    time.Duration `json:"embed_time"`
	TotalTime    time.Duration `json:"total_time"`
	Condensed    bool          `json:"condensed"`
	CondensedLen int           `json:"condensed_len,omitempty"`
}

// StoreError records a failed sub-step of a multi-store operation.
type StoreError struct {
	Store string `json:"store"`
	Err   string `json:"error"`
}

// DeleteResult enumerates per-store outcomes of a document deletion.
// Success means at least one store was actually changed; a deletion that
// touched nothing is a no-op, not an error. Removed and Failed are disjoint.
type DeleteResult struct {
	Filename string       `json:"filename"`
	Forced   bool         `json:"forced"`
	Success  bool         `json:"success"`
	Message  string       `json:"message,omitempty"`
	Removed  []string     `json:"removed_stores"`
	Failed   []StoreError `json:"failed_stores,omitempty"`
}

// NoOp reports whether the deletion changed nothing and failed nothing:
// there was simply nothing to remove.
func (r *DeleteResult) NoOp() bool {
	return len(r.Removed) == 0 && len(r.Failed) == 0
}

// DeleteAllResult summarizes a bulk removal of every known document.
type DeleteAllResult struct {
	Total   int             `json:"total"`
	Deleted []string        `json:"deleted"`
	Failed  []string        `json:"failed"`
	Results []*DeleteResult `json:"results,omitempty"`
}

// RetrievedChunk is one ranked retrieval hit returned to callers.
type RetrievedChunk struct {
	Content    string  `json:"content"`
	SourceFile string  `json:"source_file"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
}

// Consistency issue types reported by the audit.
const (
	IssueMissingRecords  = "missing_records"  // file exists, no registry entry
	IssueMissingFiles    = "missing_files"    // registry entry, no file
	IssueOrphanedVectors = "orphaned_vectors" // vector records, no file
	IssueMissingVectors  = "missing_vectors"  // file exists, no vector records
)

// ConsistencyIssue is one category of divergence between the filesystem,
// the registry, and the vector index.
type ConsistencyIssue struct {
	Type      string   `json:"type"`
	Filenames []string `json:"filenames"`
	Count     int      `json:"count"`
}

// ConsistencyReport is the read-only result of a cross-store audit.
type ConsistencyReport struct {
	Consistent   bool               `json:"consistent"`
	TotalFiles   int                `json:"total_files"`
	TotalRecords int                `json:"total_records"`
	TotalVectors int                `json:"total_vector_sources"`
	Issues       []ConsistencyIssue `json:"issues"`
}

// RepairResult reports an orphaned-vector cleanup pass.
type RepairResult struct {
	Orphans  []string `json:"orphans"`
	Repaired []string `json:"repaired"`
	Failed   []string `json:"failed"`
}
