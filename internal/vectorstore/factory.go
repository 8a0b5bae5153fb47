package vectorstore

import (
	"fmt"
	"time"
)

// Backend identifies a vector store implementation.
type Backend string

const (
	// BackendMemory is the in-process brute-force store. Nothing persists.
	BackendMemory Backend = "memory"
	// BackendBolt is the embedded bbolt-persisted store.
	BackendBolt Backend = "bolt"
	// BackendChroma is an external ChromaDB server.
	BackendChroma Backend = "chroma"
)

// Options configures store construction.
type Options struct {
	Backend        string
	Dimensions     int
	EmbeddingModel string
	// Path is the database file for the bolt backend, or the snapshot
	// file the memory backend saves on Close and loads on construction.
	Path string
	// URL and Collection configure the chroma backend.
	URL        string
	Collection string
	Timeout    time.Duration
}

// New creates a vector store for the configured backend.
// Supported backends: "memory" (default), "bolt", "chroma".
func New(opts Options) (Store, error) {
	switch Backend(opts.Backend) {
	case BackendMemory, "":
		ms, err := NewMemoryStore(opts.Dimensions, opts.EmbeddingModel)
		if err != nil {
			return nil, err
		}
		if opts.Path != "" {
			ms.snapshotPath = opts.Path
			if err := ms.Load(opts.Path); err != nil {
				return nil, err
			}
		}
		return ms, nil
	case BackendBolt:
		return NewBoltStore(opts.Path, opts.Dimensions, opts.EmbeddingModel)
	case BackendChroma:
		return NewChromaStore(ChromaConfig{
			URL:            opts.URL,
			Collection:     opts.Collection,
			Dimensions:     opts.Dimensions,
			EmbeddingModel: opts.EmbeddingModel,
			Timeout:        opts.Timeout,
		})
	default:
		return nil, fmt.Errorf("unknown vector store backend: %s (supported: memory, bolt, chroma)", opts.Backend)
	}
}
