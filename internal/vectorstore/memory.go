package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/TWAKATitan/Local-RAG/internal/models"
)

// MemoryStore is an in-process brute-force vector store. Suitable for tests
// and small corpora. Contents live in RAM; with a snapshot path set, Close
// writes a binary snapshot that the next construction loads back.
type MemoryStore struct {
	dimensions     int
	embeddingModel string
	snapshotPath   string

	mu      sync.RWMutex
	byID    map[string]int
	records []Record
}

// NewMemoryStore creates an in-memory store for vectors of the given
// dimension. embeddingModel is reported in Stats only.
func NewMemoryStore(dimensions int, embeddingModel string) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{
		dimensions:     dimensions,
		embeddingModel: embeddingModel,
		byID:           make(map[string]int),
	}, nil
}

// Add upserts records by chunk ID. The whole batch is validated before any
// record is applied, so a bad batch cannot disturb previously added records.
func (m *MemoryStore) Add(ctx context.Context, records []Record) error {
	for _, r := range records {
		if r.ChunkID == "" {
			return fmt.Errorf("record has empty chunk id")
		}
		if len(r.Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", r.ChunkID, len(r.Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		vec := make([]float32, m.dimensions)
		copy(vec, r.Vector)
		r.Vector = vec
		if pos, ok := m.byID[r.ChunkID]; ok {
			m.records[pos] = r
			continue
		}
		m.byID[r.ChunkID] = len(m.records)
		m.records = append(m.records, r)
	}
	return nil
}

// Search returns the k nearest records by squared Euclidean distance.
func (m *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.records) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(m.records))
	for i, r := range m.records {
		hits[i] = Hit{Record: r, Distance: SquaredEuclidean(query, r.Vector)}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// DeleteWhere removes all matching records and returns how many were removed.
func (m *MemoryStore) DeleteWhere(ctx context.Context, pred Predicate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	byID := make(map[string]int, len(m.byID))
	removed := 0
	for _, r := range m.records {
		if pred(r.Meta) {
			removed++
			continue
		}
		byID[r.ChunkID] = len(kept)
		kept = append(kept, r)
	}
	m.records = kept
	m.byID = byID
	return removed, nil
}

// Sources returns record counts per source file.
func (m *MemoryStore) Sources(ctx context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]int)
	for _, r := range m.records {
		out[r.Meta.SourceFile]++
	}
	return out, nil
}

// Stats returns the record count and backend identity.
func (m *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Count:          len(m.records),
		Backend:        string(BackendMemory),
		EmbeddingModel: m.embeddingModel,
	}, nil
}

// Clear removes every record.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	m.byID = make(map[string]int)
	return nil
}

// Close writes a snapshot when a snapshot path is configured.
func (m *MemoryStore) Close() error {
	return m.Save(m.snapshotPath)
}

// Save persists the store to path, creating the directory if needed.
// Format: dimensions (4), count (4), then per record: idLen (4), id bytes,
// contentLen (4), content bytes, metaLen (4), meta JSON, vector
// (dimensions*4 bytes, little endian). An empty path is a no-op.
func (m *MemoryStore) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.records))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, r := range m.records {
		meta, err := json.Marshal(r.Meta)
		if err != nil {
			return fmt.Errorf("encode meta for %s: %w", r.ChunkID, err)
		}
		for _, field := range [][]byte{[]byte(r.ChunkID), []byte(r.Content), meta} {
			if err := binary.Write(f, binary.LittleEndian, uint32(len(field))); err != nil {
				return fmt.Errorf("write field length: %w", err)
			}
			if _, err := f.Write(field); err != nil {
				return fmt.Errorf("write field: %w", err)
			}
		}
		if _, err := f.Write(vectorToBytes(r.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load replaces the store contents from a snapshot at path. A missing file
// or empty path leaves the store unchanged. Dimensions must match.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot file: %w", err)
	}
	defer f.Close()
	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("snapshot dimension mismatch: file has %d, store expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	records := make([]Record, 0, n)
	byID := make(map[string]int, n)
	readField := func() ([]byte, error) {
		var l uint32
		if err := binary.Read(f, binary.LittleEndian, &l); err != nil {
			return nil, err
		}
		b := make([]byte, l)
		if _, err := io.ReadFull(f, b); err != nil {
			return nil, err
		}
		return b, nil
	}
	vecBuf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		id, err := readField()
		if err != nil {
			return fmt.Errorf("read chunk id: %w", err)
		}
		content, err := readField()
		if err != nil {
			return fmt.Errorf("read content: %w", err)
		}
		metaBytes, err := readField()
		if err != nil {
			return fmt.Errorf("read meta: %w", err)
		}
		var meta models.ChunkMetadata
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return fmt.Errorf("decode meta for %s: %w", id, err)
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		byID[string(id)] = len(records)
		records = append(records, Record{
			ChunkID: string(id),
			Vector:  bytesToVector(vecBuf),
			Content: string(content),
			Meta:    meta,
		})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
	m.byID = byID
	return nil
}

func vectorToBytes(v []float32) []byte {
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(x))
	}
	return b
}

func bytesToVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
