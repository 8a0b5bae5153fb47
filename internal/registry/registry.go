// Package registry tracks which documents have been ingested.
package registry

import (
	"sort"
	"sync"

	"github.com/TWAKATitan/Local-RAG/internal/models"
)

// Registry is an in-memory, concurrency-safe map from document filename
// to its processing record. It is rebuilt from storage on startup, so it
// carries no persistence of its own.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]*models.Document
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{docs: make(map[string]*models.Document)}
}

// Get returns the record for filename, or false if it is not registered.
func (r *Registry) Get(filename string) (*models.Document, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[filename]
	return doc, ok
}

// Put registers or replaces the record for doc.Filename.
func (r *Registry) Put(doc *models.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Filename] = doc
}

// Delete removes the record for filename. Returns whether it was present.
func (r *Registry) Delete(filename string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.docs[filename]
	delete(r.docs, filename)
	return ok
}

// List returns all records sorted by filename.
func (r *Registry) List() []*models.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	docs := make([]*models.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Filename < docs[j].Filename })
	return docs
}

// Filenames returns the registered filenames sorted ascending.
func (r *Registry) Filenames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.docs))
	for name := range r.docs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replace swaps the registry contents wholesale, for rebuilds from a
// storage scan.
func (r *Registry) Replace(docs map[string]*models.Document) {
	next := make(map[string]*models.Document, len(docs))
	for name, doc := range docs {
		next[name] = doc
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = next
}

// Clear removes all records.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]*models.Document)
}

// Len returns the number of registered documents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}
