package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/TWAKATitan/Local-RAG/internal/models"
)

func doc(name string) *models.Document {
	return &models.Document{Filename: name, StorageStatus: models.StorageStatusPermanent}
}

func TestPutGetDelete(t *testing.T) {
	r := New()
	if _, ok := r.Get("a.pdf"); ok {
		t.Error("empty registry returned a document")
	}
	r.Put(doc("a.pdf"))
	got, ok := r.Get("a.pdf")
	if !ok || got.Filename != "a.pdf" {
		t.Fatalf("Get after Put returned %v, %v", got, ok)
	}
	if !r.Delete("a.pdf") {
		t.Error("Delete of registered document returned false")
	}
	if r.Delete("a.pdf") {
		t.Error("Delete of missing document returned true")
	}
	if r.Len() != 0 {
		t.Errorf("expected empty registry, got %d entries", r.Len())
	}
}

func TestPutReplacesExisting(t *testing.T) {
	r := New()
	r.Put(doc("a.pdf"))
	updated := doc("a.pdf")
	updated.ChunkCount = 7
	r.Put(updated)
	got, _ := r.Get("a.pdf")
	if got.ChunkCount != 7 {
		t.Errorf("Put did not replace the record, chunk count = %d", got.ChunkCount)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", r.Len())
	}
}

func TestListSorted(t *testing.T) {
	r := New()
	for _, name := range []string{"c.pdf", "a.pdf", "b.pdf"} {
		r.Put(doc(name))
	}
	docs := r.List()
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	for i, want := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		if docs[i].Filename != want {
			t.Errorf("List[%d] = %s, want %s", i, docs[i].Filename, want)
		}
	}
	names := r.Filenames()
	if len(names) != 3 || names[0] != "a.pdf" || names[2] != "c.pdf" {
		t.Errorf("unexpected Filenames order: %v", names)
	}
}

func TestReplaceAndClear(t *testing.T) {
	r := New()
	r.Put(doc("old.pdf"))
	r.Replace(map[string]*models.Document{
		"x.pdf": doc("x.pdf"),
		"y.pdf": doc("y.pdf"),
	})
	if _, ok := r.Get("old.pdf"); ok {
		t.Error("Replace kept a stale record")
	}
	if r.Len() != 2 {
		t.Errorf("expected 2 entries after Replace, got %d", r.Len())
	}
	r.Clear()
	if r.Len() != 0 {
		t.Errorf("expected empty registry after Clear, got %d", r.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("doc-%d.pdf", i)
			r.Put(doc(name))
			r.Get(name)
			r.List()
			if i%2 == 0 {
				r.Delete(name)
			}
		}(i)
	}
	wg.Wait()
	if r.Len() != 8 {
		t.Errorf("expected 8 surviving entries, got %d", r.Len())
	}
}
