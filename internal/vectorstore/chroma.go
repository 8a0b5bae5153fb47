package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/TWAKATitan/Local-RAG/internal/models"
)

// ChromaStore is a vector store backed by an external ChromaDB server over
// its REST API. The collection is created on first use if missing. Chroma
// reports squared Euclidean distance for its default metric; similarity
// conversion is left to the caller's Converter.
type ChromaStore struct {
	baseURL        string
	collection     string
	collectionID   string
	dimensions     int
	embeddingModel string
	client         *http.Client
}

// ChromaConfig configures the ChromaDB client.
type ChromaConfig struct {
	URL            string
	Collection     string
	Dimensions     int
	EmbeddingModel string
	Timeout        time.Duration
}

// NewChromaStore creates a client for the ChromaDB server at cfg.URL and
// ensures the collection exists.
func NewChromaStore(cfg ChromaConfig) (*ChromaStore, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if cfg.Collection == "" {
		cfg.Collection = "pdf_documents"
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s := &ChromaStore{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		collection:     cfg.Collection,
		dimensions:     cfg.Dimensions,
		embeddingModel: cfg.EmbeddingModel,
		client:         &http.Client{Timeout: timeout},
	}
	if err := s.ensureCollection(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromaStore) ensureCollection(ctx context.Context) error {
	req := map[string]any{"name": s.collection, "get_or_create": true}
	var resp struct {
		ID string `json:"id"`
	}
	if err := s.postJSON(ctx, "/api/v1/collections", req, &resp); err != nil {
		return fmt.Errorf("ensure collection %q: %w", s.collection, err)
	}
	s.collectionID = resp.ID
	return nil
}

func metaToPayload(meta models.ChunkMetadata) map[string]any {
	return map[string]any{
		"source_file": meta.SourceFile,
		"chunk_index": meta.ChunkIndex,
		"char_count":  meta.CharCount,
		"word_count":  meta.WordCount,
		"created_at":  meta.CreatedAt.Format(time.RFC3339),
	}
}

func payloadToMeta(payload map[string]any) models.ChunkMetadata {
	meta := models.ChunkMetadata{}
	if v, ok := payload["source_file"].(string); ok {
		meta.SourceFile = v
	}
	if v, ok := payload["chunk_index"].(float64); ok {
		meta.ChunkIndex = int(v)
	}
	if v, ok := payload["char_count"].(float64); ok {
		meta.CharCount = int(v)
	}
	if v, ok := payload["word_count"].(float64); ok {
		meta.WordCount = int(v)
	}
	if v, ok := payload["created_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			meta.CreatedAt = t
		}
	}
	return meta
}

// Add upserts records into the collection. Chroma's upsert overwrites
// existing IDs, so resubmitting a chunk is idempotent.
func (s *ChromaStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	embeddings := make([][]float32, len(records))
	documents := make([]string, len(records))
	metadatas := make([]map[string]any, len(records))
	for i, r := range records {
		if r.ChunkID == "" {
			return fmt.Errorf("record has empty chunk id")
		}
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", r.ChunkID, len(r.Vector), s.dimensions)
		}
		ids[i] = r.ChunkID
		embeddings[i] = r.Vector
		documents[i] = r.Content
		metadatas[i] = metaToPayload(r.Meta)
	}
	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	if err := s.postJSON(ctx, s.collectionPath("upsert"), body, nil); err != nil {
		return fmt.Errorf("upsert %d records: %w", len(records), err)
	}
	return nil
}

// Search queries the collection and returns hits with Chroma's raw distances.
func (s *ChromaStore) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dimensions)
	}
	if k <= 0 {
		return nil, nil
	}
	body := map[string]any{
		"query_embeddings": [][]float32{query},
		"n_results":        k,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	var resp struct {
		IDs       [][]string         `json:"ids"`
		Documents [][]string         `json:"documents"`
		Metadatas [][]map[string]any `json:"metadatas"`
		Distances [][]float64        `json:"distances"`
	}
	if err := s.postJSON(ctx, s.collectionPath("query"), body, &resp); err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		hit := Hit{Record: Record{ChunkID: id}}
		if len(resp.Documents) > 0 && i < len(resp.Documents[0]) {
			hit.Record.Content = resp.Documents[0][i]
		}
		if len(resp.Metadatas) > 0 && i < len(resp.Metadatas[0]) {
			hit.Record.Meta = payloadToMeta(resp.Metadatas[0][i])
		}
		if len(resp.Distances) > 0 && i < len(resp.Distances[0]) {
			hit.Distance = resp.Distances[0][i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// getAllMetadata fetches every record's ID and metadata.
func (s *ChromaStore) getAllMetadata(ctx context.Context) ([]string, []models.ChunkMetadata, error) {
	body := map[string]any{"include": []string{"metadatas"}}
	var resp struct {
		IDs       []string         `json:"ids"`
		Metadatas []map[string]any `json:"metadatas"`
	}
	if err := s.postJSON(ctx, s.collectionPath("get"), body, &resp); err != nil {
		return nil, nil, fmt.Errorf("get collection contents: %w", err)
	}
	metas := make([]models.ChunkMetadata, len(resp.IDs))
	for i := range resp.IDs {
		if i < len(resp.Metadatas) {
			metas[i] = payloadToMeta(resp.Metadatas[i])
		}
	}
	return resp.IDs, metas, nil
}

// DeleteWhere fetches record metadata, evaluates pred client-side (Chroma
// cannot run arbitrary predicates server-side), and deletes the matching IDs
// in one call. On failure the error names the IDs that were not removed.
func (s *ChromaStore) DeleteWhere(ctx context.Context, pred Predicate) (int, error) {
	ids, metas, err := s.getAllMetadata(ctx)
	if err != nil {
		return 0, err
	}
	var matched []string
	for i, id := range ids {
		if pred(metas[i]) {
			matched = append(matched, id)
		}
	}
	if len(matched) == 0 {
		return 0, nil
	}
	body := map[string]any{"ids": matched}
	if err := s.postJSON(ctx, s.collectionPath("delete"), body, nil); err != nil {
		return 0, fmt.Errorf("delete %d records (ids %s): %w", len(matched), strings.Join(matched, ","), err)
	}
	return len(matched), nil
}

// Sources returns record counts per source file.
func (s *ChromaStore) Sources(ctx context.Context) (map[string]int, error) {
	_, metas, err := s.getAllMetadata(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, meta := range metas {
		out[meta.SourceFile]++
	}
	return out, nil
}

// Stats returns the record count reported by the server.
func (s *ChromaStore) Stats(ctx context.Context) (Stats, error) {
	var count int
	if err := s.getJSON(ctx, s.collectionPath("count"), &count); err != nil {
		return Stats{}, fmt.Errorf("count collection: %w", err)
	}
	return Stats{
		Count:          count,
		Backend:        string(BackendChroma),
		EmbeddingModel: s.embeddingModel,
	}, nil
}

// Clear deletes and recreates the collection.
func (s *ChromaStore) Clear(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/api/v1/collections/"+s.collection, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete collection: %s", resp.Status)
	}
	return s.ensureCollection(ctx)
}

// Close is a no-op; the store holds no persistent connection.
func (s *ChromaStore) Close() error { return nil }

func (s *ChromaStore) collectionPath(op string) string {
	return "/api/v1/collections/" + s.collectionID + "/" + op
}

func (s *ChromaStore) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *ChromaStore) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
