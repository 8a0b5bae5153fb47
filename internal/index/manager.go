// Package index coordinates query-time retrieval over the vector store.
package index

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TWAKATitan/Local-RAG/internal/embedding"
	"github.com/TWAKATitan/Local-RAG/internal/models"
	"github.com/TWAKATitan/Local-RAG/internal/vectorstore"
)

// Rerank weights for combining vector similarity with keyword overlap.
const (
	rerankSimilarityWeight = 0.7
	rerankKeywordWeight    = 0.3
)

// DefaultTopK is the number of chunks returned when the caller does not
// specify one.
const DefaultTopK = 5

// QueryOptions control a single retrieval call.
type QueryOptions struct {
	TopK      int     // number of chunks to return; DefaultTopK when <= 0
	Threshold float64 // minimum similarity to keep; <= 0 keeps everything
	Rerank    bool    // blend similarity with keyword overlap
}

// Manager runs semantic retrieval: it embeds the query, searches the
// vector store, and converts raw distances into ranked results.
type Manager struct {
	embedder  embedding.Embedder
	store     vectorstore.Store
	converter vectorstore.Converter
	logger    *zap.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithConverter overrides the distance-to-similarity conversion.
func WithConverter(c vectorstore.Converter) Option {
	return func(m *Manager) { m.converter = c }
}

// WithLogger sets the manager's logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a retrieval manager over the given embedder and store.
func NewManager(embedder embedding.Embedder, store vectorstore.Store, opts ...Option) *Manager {
	m := &Manager{
		embedder:  embedder,
		store:     store,
		converter: vectorstore.Reciprocal,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Query retrieves the chunks most relevant to the question.
//
// Results are ordered by descending similarity, or by the combined
// similarity/keyword score when reranking is enabled. Chunks below the
// threshold are dropped before reranking, so keyword overlap can reorder
// the kept set but never resurrect a filtered chunk.
func (m *Manager) Query(ctx context.Context, question string, opts QueryOptions) ([]models.RetrievedChunk, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	start := time.Now()
	queryVector, err := m.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if embedding.IsZeroVector(queryVector) {
		return nil, fmt.Errorf("embedding service returned a zero vector; refusing to search")
	}

	hits, err := m.store.Search(ctx, queryVector, opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]models.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		sim := m.converter(h.Distance)
		if opts.Threshold > 0 && sim < opts.Threshold {
			continue
		}
		results = append(results, models.RetrievedChunk{
			Content:    h.Record.Content,
			SourceFile: h.Record.Meta.SourceFile,
			ChunkIndex: h.Record.Meta.ChunkIndex,
			Similarity: sim,
		})
	}

	if opts.Rerank {
		rerank(question, results)
	} else {
		// Store hits come back distance-ascending; with converters that
		// are not monotonic over negative distances the similarity order
		// can differ, so sort again.
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Similarity > results[j].Similarity
		})
	}

	m.logger.Debug("retrieval complete",
		zap.Int("candidates", len(hits)),
		zap.Int("returned", len(results)),
		zap.Bool("rerank", opts.Rerank),
		zap.Duration("took", time.Since(start)))

	return results, nil
}

// rerank reorders results in place by a weighted blend of vector
// similarity and keyword overlap with the query.
func rerank(question string, results []models.RetrievedChunk) {
	terms := queryTerms(question)
	type scored struct {
		chunk models.RetrievedChunk
		score float64
	}
	ranked := make([]scored, len(results))
	for i, r := range results {
		ranked[i] = scored{
			chunk: r,
			score: rerankSimilarityWeight*r.Similarity +
				rerankKeywordWeight*keywordOverlap(terms, r.Content),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	for i, s := range ranked {
		results[i] = s.chunk
	}
}

// queryTerms returns the distinct lowercase terms of a query.
func queryTerms(query string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// keywordOverlap returns the fraction of query terms that appear as whole
// words in content. Substring hits do not count, so "cat" never matches
// "concatenate".
func keywordOverlap(terms []string, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(content)) {
		words[w] = struct{}{}
	}
	matched := 0
	for _, term := range terms {
		if _, ok := words[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
