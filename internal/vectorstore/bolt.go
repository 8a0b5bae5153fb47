package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/TWAKATitan/Local-RAG/internal/models"
)

var bucketRecords = []byte("records")

// BoltStore is an embedded, persistent vector store backed by bbolt.
// Records are kept in a single bucket keyed by chunk ID and mirrored in an
// in-memory cache for brute-force search.
type BoltStore struct {
	db             *bbolt.DB
	dimensions     int
	embeddingModel string

	mu    sync.RWMutex
	cache map[string]Record
}

type storedRecord struct {
	Vector  []float32            `json:"v"`
	Content string               `json:"c"`
	Meta    models.ChunkMetadata `json:"m"`
}

// NewBoltStore opens (or creates) a bbolt database at path and loads all
// records into memory. Parent directories are created if missing.
func NewBoltStore(path string, dimensions int, embeddingModel string) (*BoltStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records bucket: %w", err)
	}
	s := &BoltStore{
		db:             db,
		dimensions:     dimensions,
		embeddingModel: embeddingModel,
		cache:          make(map[string]Record),
	}
	if err := s.loadRecords(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load records: %w", err)
	}
	return s, nil
}

func (s *BoltStore) loadRecords() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).ForEach(func(k, v []byte) error {
			var stored storedRecord
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			id := string(k)
			s.cache[id] = Record{ChunkID: id, Vector: stored.Vector, Content: stored.Content, Meta: stored.Meta}
			return nil
		})
	})
}

// Add upserts records in a single transaction: either the whole batch lands
// or none of it does, and earlier batches are untouched either way.
func (s *BoltStore) Add(ctx context.Context, records []Record) error {
	for _, r := range records {
		if r.ChunkID == "" {
			return fmt.Errorf("record has empty chunk id")
		}
		if len(r.Vector) != s.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", r.ChunkID, len(r.Vector), s.dimensions)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, r := range records {
			data, err := json.Marshal(storedRecord{Vector: r.Vector, Content: r.Content, Meta: r.Meta})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(r.ChunkID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("put records: %w", err)
	}
	for _, r := range records {
		s.cache[r.ChunkID] = r
	}
	return nil
}

// Search returns the k nearest records by squared Euclidean distance.
func (s *BoltStore) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), s.dimensions)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 || len(s.cache) == 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(s.cache))
	for _, r := range s.cache {
		hits = append(hits, Hit{Record: r, Distance: SquaredEuclidean(query, r.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance == hits[j].Distance {
			return hits[i].Record.ChunkID < hits[j].Record.ChunkID
		}
		return hits[i].Distance < hits[j].Distance
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// DeleteWhere removes all matching records in one transaction.
func (s *BoltStore) DeleteWhere(ctx context.Context, pred Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, r := range s.cache {
		if pred(r.Meta) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	for _, id := range ids {
		delete(s.cache, id)
	}
	return len(ids), nil
}

// Sources returns record counts per source file.
func (s *BoltStore) Sources(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int)
	for _, r := range s.cache {
		out[r.Meta.SourceFile]++
	}
	return out, nil
}

// Stats returns the record count and backend identity.
func (s *BoltStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Count:          len(s.cache),
		Backend:        string(BackendBolt),
		EmbeddingModel: s.embeddingModel,
	}, nil
}

// Clear drops and recreates the records bucket.
func (s *BoltStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRecords); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketRecords)
		return err
	})
	if err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	s.cache = make(map[string]Record)
	return nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
