package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndex implements Index using Bleve.
type BleveIndex struct {
	index bleve.Index
	path  string
}

// NewBleveIndex creates or opens a Bleve chunk index at path.
// An existing index is opened and reused; remove the directory to force a
// rebuild after a mapping change.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so queries
	// match the exact words that appear in the documents.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("source", keywordFieldMapping)
	im.AddDocumentMapping("chunk", docMapping)
	im.DefaultType = "chunk"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index, path: path}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index, path: path}, nil
}

// IndexChunks adds or replaces chunks, batched for throughput.
func (b *BleveIndex) IndexChunks(ctx context.Context, chunks []ChunkDoc) error {
	batch := b.index.NewBatch()
	for _, c := range chunks {
		if c.ChunkID == "" {
			return fmt.Errorf("chunk with empty ID")
		}
		if err := batch.Index(c.ChunkID, c); err != nil {
			return fmt.Errorf("batch chunk %s: %w", c.ChunkID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Search runs a match query over chunk content and returns up to limit hits.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]Hit, error) {
	fuzzyEnabled := false
	fuzziness := 2
	if opts != nil {
		fuzzyEnabled = opts.FuzzyEnabled
		if opts.Fuzziness > 0 {
			fuzziness = opts.Fuzziness
		}
	}

	var q blevequery.Query
	if fuzzyEnabled {
		q = buildFuzzyQuery(query, fuzziness)
	} else {
		mq := bleve.NewMatchQuery(query)
		mq.SetField("content")
		q = mq
	}
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"source", "chunk_index", "content"}
	results, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	hits := make([]Hit, 0, len(results.Hits))
	for _, h := range results.Hits {
		hit := Hit{ChunkID: h.ID, Score: h.Score}
		if v, ok := h.Fields["source"].(string); ok {
			hit.SourceFile = v
		}
		if v, ok := h.Fields["chunk_index"].(float64); ok {
			hit.ChunkIndex = int(v)
		}
		if v, ok := h.Fields["content"].(string); ok {
			hit.Content = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// DeleteBySource removes every chunk whose source field equals sourceFile.
func (b *BleveIndex) DeleteBySource(ctx context.Context, sourceFile string) (int, error) {
	tq := bleve.NewTermQuery(sourceFile)
	tq.SetField("source")
	removed := 0
	for {
		req := bleve.NewSearchRequest(tq)
		req.Size = 500
		results, err := b.index.Search(req)
		if err != nil {
			return removed, fmt.Errorf("Bleve source lookup failed: %w", err)
		}
		if len(results.Hits) == 0 {
			return removed, nil
		}
		batch := b.index.NewBatch()
		for _, h := range results.Hits {
			batch.Delete(h.ID)
		}
		if err := b.index.Batch(batch); err != nil {
			return removed, fmt.Errorf("Bleve delete batch failed: %w", err)
		}
		removed += len(results.Hits)
	}
}

// Count returns the number of indexed chunks.
func (b *BleveIndex) Count() (uint64, error) {
	return b.index.DocCount()
}

// Clear removes all chunks by recreating the index directory.
func (b *BleveIndex) Clear(ctx context.Context) error {
	if err := b.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(b.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	fresh, err := NewBleveIndex(b.path)
	if err != nil {
		return err
	}
	b.index = fresh.index
	return nil
}

// Close closes the underlying index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// buildFuzzyQuery builds a disjunction of fuzzy term queries so any term
// within the edit distance matches.
func buildFuzzyQuery(query string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		mq := bleve.NewMatchQuery(query)
		mq.SetField("content")
		return mq
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetField("content")
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}
