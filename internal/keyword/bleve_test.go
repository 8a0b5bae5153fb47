package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "keyword.bleve"))
	if err != nil {
		t.Fatalf("creating index failed: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func seedChunks(t *testing.T, idx *BleveIndex) {
	t.Helper()
	err := idx.IndexChunks(context.Background(), []ChunkDoc{
		{ChunkID: "report.pdf_chunk_0", SourceFile: "report.pdf", ChunkIndex: 0, Content: "quarterly revenue grew by ten percent"},
		{ChunkID: "report.pdf_chunk_1", SourceFile: "report.pdf", ChunkIndex: 1, Content: "operating expenses stayed flat"},
		{ChunkID: "manual.pdf_chunk_0", SourceFile: "manual.pdf", ChunkIndex: 0, Content: "press the power button to start"},
	})
	if err != nil {
		t.Fatalf("indexing failed: %v", err)
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	seedChunks(t, idx)

	hits, err := idx.Search(context.Background(), "revenue", 10, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	h := hits[0]
	if h.ChunkID != "report.pdf_chunk_0" || h.SourceFile != "report.pdf" || h.ChunkIndex != 0 {
		t.Errorf("unexpected hit: %+v", h)
	}
	if h.Content == "" || h.Score <= 0 {
		t.Errorf("hit missing content or score: %+v", h)
	}
}

func TestSearchFuzzy(t *testing.T) {
	idx := newTestIndex(t)
	seedChunks(t, idx)

	// Exact search for the typo finds nothing.
	hits, err := idx.Search(context.Background(), "revenu", 10, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no exact hits for typo, got %d", len(hits))
	}

	hits, err = idx.Search(context.Background(), "revenu", 10, &SearchOptions{FuzzyEnabled: true})
	if err != nil {
		t.Fatalf("fuzzy search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected fuzzy search to tolerate the typo")
	}
	if hits[0].SourceFile != "report.pdf" {
		t.Errorf("unexpected fuzzy hit: %+v", hits[0])
	}
}

func TestDeleteBySource(t *testing.T) {
	idx := newTestIndex(t)
	seedChunks(t, idx)

	removed, err := idx.DeleteBySource(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 chunks removed, got %d", removed)
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 chunk left, got %d", count)
	}

	removed, err = idx.DeleteBySource(context.Background(), "report.pdf")
	if err != nil {
		t.Fatalf("repeat delete failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected repeat delete to remove nothing, got %d", removed)
	}
}

func TestIndexReplacesChunk(t *testing.T) {
	idx := newTestIndex(t)
	seedChunks(t, idx)

	err := idx.IndexChunks(context.Background(), []ChunkDoc{
		{ChunkID: "report.pdf_chunk_0", SourceFile: "report.pdf", ChunkIndex: 0, Content: "completely different wording"},
	})
	if err != nil {
		t.Fatalf("re-index failed: %v", err)
	}
	hits, err := idx.Search(context.Background(), "revenue", 10, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected old content to be replaced, got %d hits", len(hits))
	}
	count, _ := idx.Count()
	if count != 3 {
		t.Errorf("expected 3 chunks after replace, got %d", count)
	}
}

func TestClear(t *testing.T) {
	idx := newTestIndex(t)
	seedChunks(t, idx)

	if err := idx.Clear(context.Background()); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	count, err := idx.Count()
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected empty index after Clear, got %d", count)
	}
	// Fresh index still accepts writes.
	if err := idx.IndexChunks(context.Background(), []ChunkDoc{
		{ChunkID: "new.pdf_chunk_0", SourceFile: "new.pdf", Content: "fresh content"},
	}); err != nil {
		t.Fatalf("index after Clear failed: %v", err)
	}
}

func TestEmptyChunkIDRejected(t *testing.T) {
	idx := newTestIndex(t)
	err := idx.IndexChunks(context.Background(), []ChunkDoc{{Content: "no id"}})
	if err == nil {
		t.Error("expected error for chunk with empty ID")
	}
}
