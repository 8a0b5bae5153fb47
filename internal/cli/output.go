// Package cli provides output formatting for the Local-RAG command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TWAKATitan/Local-RAG/internal/models"
	"github.com/TWAKATitan/Local-RAG/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a -output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch s {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteChunks writes ranked retrieval results.
func WriteChunks(w io.Writer, question string, chunks []models.RetrievedChunk, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"question": question, "chunks": chunks})
	}
	if len(chunks) == 0 {
		fmt.Fprintln(w, "No matching chunks found.")
		return nil
	}
	fmt.Fprintf(w, "\n%d chunk(s) for %q:\n\n", len(chunks), question)
	for i, c := range chunks {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "[%d] %s (chunk %d) similarity %.4f\n", i+1, c.SourceFile, c.ChunkIndex, c.Similarity)
		fmt.Fprintf(w, "%s\n", utils.Truncate(strings.TrimSpace(c.Content), 400))
	}
	return nil
}

// WriteDocuments writes the document listing.
func WriteDocuments(w io.Writer, docs []*models.Document, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"documents": docs, "count": len(docs)})
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents.")
		return nil
	}
	fmt.Fprintf(w, "%d document(s):\n", len(docs))
	for _, d := range docs {
		status := d.StorageStatus
		if status == "" {
			status = "not ingested"
		}
		fmt.Fprintf(w, "  %-40s %4d chunks  %3d pages  [%s]\n", d.Filename, d.ChunkCount, d.PageCount, status)
	}
	return nil
}

// WriteDeleteResult writes a per-store deletion outcome.
func WriteDeleteResult(w io.Writer, res *models.DeleteResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintln(w, res.Message)
	for _, f := range res.Failed {
		fmt.Fprintf(w, "  failed: %s: %s\n", f.Store, f.Err)
	}
	return nil
}

// WriteReport writes a consistency audit report.
func WriteReport(w io.Writer, report *models.ConsistencyReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, report)
	}
	fmt.Fprintf(w, "Files: %d  Records: %d  Vector sources: %d\n",
		report.TotalFiles, report.TotalRecords, report.TotalVectors)
	if report.Consistent {
		fmt.Fprintln(w, "All stores are consistent.")
		return nil
	}
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "%s (%d):\n", issue.Type, issue.Count)
		for _, name := range issue.Filenames {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	return nil
}

// WriteRepairResult writes an orphan repair outcome.
func WriteRepairResult(w io.Writer, res *models.RepairResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	if len(res.Orphans) == 0 {
		fmt.Fprintln(w, "No orphaned vectors found.")
		return nil
	}
	fmt.Fprintf(w, "Repaired %d of %d orphan(s).\n", len(res.Repaired), len(res.Orphans))
	for _, name := range res.Failed {
		fmt.Fprintf(w, "  failed: %s\n", name)
	}
	return nil
}

// WriteIngestResult writes an ingestion summary.
func WriteIngestResult(w io.Writer, res *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	round := 10 * time.Millisecond
	fmt.Fprintf(w, "Ingested %s: %d pages, %d chars, %d chunks in %s (extract %s, embed %s)\n",
		res.Filename, res.PageCount, res.CharCount, res.ChunkCount,
		res.TotalTime.Round(round), res.ExtractTime.Round(round), res.EmbedTime.Round(round))
	if res.Condensed {
		fmt.Fprintf(w, "  condensed to %d chars before chunking\n", res.CondensedLen)
	}
	return nil
}
