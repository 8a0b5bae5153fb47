package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu       sync.Mutex
	ingested []string
	removed  []string
}

func (r *recorder) ingest(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested = append(r.ingested, filepath.Base(path))
}

func (r *recorder) remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, name)
}

func (r *recorder) snapshot() (ingested, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ingested...), append([]string(nil), r.removed...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcherIngestsNewPDF(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(dir, rec.ingest, rec.remove, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		ingested, _ := rec.snapshot()
		return len(ingested) == 1 && ingested[0] == "report.pdf"
	})
	if !ok {
		ingested, _ := rec.snapshot()
		t.Fatalf("ingest callback not fired, got %v", ingested)
	}
}

func TestWatcherIgnoresNonPDF(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(dir, rec.ingest, rec.remove, WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	ingested, removed := rec.snapshot()
	if len(ingested) != 0 || len(removed) != 0 {
		t.Errorf("non-PDF triggered callbacks: ingested=%v removed=%v", ingested, removed)
	}
}

func TestWatcherRemoveCancelsPendingIngest(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(dir, rec.ingest, rec.remove, WithDebounce(500*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "fleeting.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Delete before the debounce fires.
	time.Sleep(100 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 3*time.Second, func() bool {
		_, removed := rec.snapshot()
		return len(removed) == 1 && removed[0] == "fleeting.pdf"
	})
	if !ok {
		t.Fatal("remove callback not fired")
	}
	time.Sleep(700 * time.Millisecond)
	ingested, _ := rec.snapshot()
	if len(ingested) != 0 {
		t.Errorf("pending ingest fired after removal: %v", ingested)
	}
}

func TestWatcherCreatesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not-yet")
	w := New(dir, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("directory not created: %v", err)
	}
}

func TestWatcherStopTwice(t *testing.T) {
	w := New(t.TempDir(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
