package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/TWAKATitan/Local-RAG/internal/chat"
	"github.com/TWAKATitan/Local-RAG/internal/config"
	"github.com/TWAKATitan/Local-RAG/internal/embedding"
	"github.com/TWAKATitan/Local-RAG/internal/index"
	"github.com/TWAKATitan/Local-RAG/internal/keyword"
	"github.com/TWAKATitan/Local-RAG/internal/lifecycle"
	"github.com/TWAKATitan/Local-RAG/internal/llm"
	"github.com/TWAKATitan/Local-RAG/internal/models"
	"github.com/TWAKATitan/Local-RAG/internal/registry"
	"github.com/TWAKATitan/Local-RAG/internal/vectorstore"
)

type testEnv struct {
	srv      *Server
	router   http.Handler
	cfg      *config.Config
	store    vectorstore.Store
	embedder embedding.Embedder
	reg      *registry.Registry
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default(base)
	cfg.Storage.DocumentsDir = filepath.Join(base, "documents")
	cfg.Storage.ProcessedDir = filepath.Join(base, "processed")
	cfg.Storage.SummariesDir = filepath.Join(base, "summaries")
	if err := os.MkdirAll(cfg.Storage.DocumentsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := vectorstore.NewMemoryStore(16, "mock")
	if err != nil {
		t.Fatal(err)
	}
	embedder := embedding.NewMockEmbedder(16)
	reg := registry.New()
	lm := lifecycle.NewManager(cfg, embedder, store, reg)
	retriever := index.NewManager(embedder, store)

	srv := NewServer(cfg, lm, retriever, store, embedder, zap.NewNop(), opts...)
	return &testEnv{
		srv:      srv,
		router:   srv.Router(),
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		reg:      reg,
	}
}

// seedDocument places a file on disk and its chunks in the vector store and
// registry, like a completed ingest.
func (e *testEnv) seedDocument(t *testing.T, name string, contents []string) {
	t.Helper()
	path := filepath.Join(e.cfg.Storage.DocumentsDir, name)
	if err := os.WriteFile(path, []byte("%PDF-fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	var records []vectorstore.Record
	for i, text := range contents {
		vec, err := e.embedder.Embed(context.Background(), text)
		if err != nil {
			t.Fatal(err)
		}
		records = append(records, vectorstore.Record{
			ChunkID: models.ChunkID(name, i),
			Vector:  vec,
			Content: text,
			Meta:    models.ChunkMetadata{SourceFile: name, ChunkIndex: i},
		})
	}
	if err := e.store.Add(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	e.reg.Put(&models.Document{
		Filename:      name,
		OriginalPath:  path,
		ChunkCount:    len(contents),
		StorageStatus: models.StorageStatusPermanent,
	})
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func TestHandleHealth(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleQuery(t *testing.T) {
	e := newTestEnv(t)
	e.seedDocument(t, "report.pdf", []string{
		"revenue grew ten percent",
		"expenses stayed flat",
	})

	w := e.do(t, http.MethodPost, "/api/v1/query", map[string]interface{}{
		"question": "revenue grew ten percent",
		"top_k":    1,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out queryResponse
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(out.Chunks))
	}
	if out.Chunks[0].Content != "revenue grew ten percent" {
		t.Errorf("unexpected chunk: %+v", out.Chunks[0])
	}
	if out.Answer != "" {
		t.Error("answer generated without llm configured")
	}
}

func TestHandleQueryEmptyQuestion(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/query", map[string]interface{}{"question": ""})
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleSearchSemantic(t *testing.T) {
	e := newTestEnv(t)
	e.seedDocument(t, "report.pdf", []string{"alpha beta", "gamma delta"})

	w := e.do(t, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query": "alpha beta",
		"limit": 2,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Mode    string                  `json:"mode"`
		Results []models.RetrievedChunk `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Mode != "semantic" || len(out.Results) != 2 {
		t.Errorf("unexpected response: mode=%s results=%d", out.Mode, len(out.Results))
	}
}

func TestHandleSearchSemanticAppliesThreshold(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Retrieval.Threshold = 0.999
	e.seedDocument(t, "report.pdf", []string{"alpha beta"})

	w := e.do(t, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query": "completely unrelated words",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Results []models.RetrievedChunk `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.Results) != 0 {
		t.Errorf("expected no results below threshold, got %d (sim=%f)",
			len(out.Results), out.Results[0].Similarity)
	}
}

func TestHandleSearchKeyword(t *testing.T) {
	base := t.TempDir()
	kwIdx, err := keyword.NewBleveIndex(filepath.Join(base, "bleve"))
	if err != nil {
		t.Fatal(err)
	}
	defer kwIdx.Close()

	e := newTestEnv(t, WithKeywordIndex(kwIdx))
	err = kwIdx.IndexChunks(context.Background(), []keyword.ChunkDoc{
		{ChunkID: "report.pdf_chunk_0", SourceFile: "report.pdf", Content: "quarterly revenue figures"},
	})
	if err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query": "revenue",
		"mode":  "keyword",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var out struct {
		Mode    string        `json:"mode"`
		Results []keyword.Hit `json:"results"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Mode != "keyword" || len(out.Results) != 1 {
		t.Errorf("unexpected response: mode=%s results=%d", out.Mode, len(out.Results))
	}
}

func TestHandleSearchKeywordNotEnabled(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query": "anything",
		"mode":  "keyword",
	})
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleSearchUnknownMode(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/search", map[string]interface{}{
		"query": "anything",
		"mode":  "psychic",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleListDocuments(t *testing.T) {
	e := newTestEnv(t)
	e.seedDocument(t, "report.pdf", []string{"some content"})

	w := e.do(t, http.MethodGet, "/api/v1/documents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Documents []*models.Document `json:"documents"`
		Count     int                `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Documents[0].Filename != "report.pdf" {
		t.Errorf("unexpected response: %+v", out)
	}
}

func TestHandleDeleteDocument(t *testing.T) {
	e := newTestEnv(t)
	e.seedDocument(t, "report.pdf", []string{"some content"})

	w := e.do(t, http.MethodDelete, "/api/v1/documents/report.pdf", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body %s", w.Code, w.Body.String())
	}
	var res models.DeleteResult
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if !res.Success {
		t.Errorf("delete failed: %+v", res)
	}

	// Deleting again finds nothing even with force.
	w = e.do(t, http.MethodDelete, "/api/v1/documents/report.pdf?force=true", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status on repeat delete: got %d", w.Code)
	}
}

func TestHandleDeleteAllNeedsConfirm(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodDelete, "/api/v1/documents", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status without confirm: got %d", w.Code)
	}
	w = e.do(t, http.MethodDelete, "/api/v1/documents?confirm=true", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status with confirm: got %d", w.Code)
	}
}

func TestHandleConsistencyAndRepair(t *testing.T) {
	e := newTestEnv(t)
	e.seedDocument(t, "report.pdf", []string{"some content"})
	// Remove the file so its vectors become orphaned.
	if err := os.Remove(filepath.Join(e.cfg.Storage.DocumentsDir, "report.pdf")); err != nil {
		t.Fatal(err)
	}

	w := e.do(t, http.MethodGet, "/api/v1/consistency", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var report models.ConsistencyReport
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Consistent {
		t.Fatal("expected inconsistency after removing the file")
	}

	w = e.do(t, http.MethodPost, "/api/v1/repair", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("repair status: got %d", w.Code)
	}
	var repair models.RepairResult
	if err := json.NewDecoder(w.Body).Decode(&repair); err != nil {
		t.Fatal(err)
	}
	if len(repair.Repaired) != 1 {
		t.Errorf("expected 1 repaired orphan, got %+v", repair)
	}
}

func TestHandleStatus(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["vector_store"]; !ok {
		t.Error("status missing vector_store")
	}
	if avail, ok := out["embedding_available"].(bool); !ok || !avail {
		t.Error("mock embedder should report available")
	}
}

func TestHandleUploadRejectsNonPDF(t *testing.T) {
	e := newTestEnv(t)
	var buf bytes.Buffer
	r := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	r.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d", w.Code)
	}
}

func newFakeLLM(t *testing.T, answer string) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": answer}},
				},
			})
		case "/v1/models":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return llm.NewClient(llm.Config{BaseURL: srv.URL})
}

func TestChatEndpoints(t *testing.T) {
	base := t.TempDir()
	chats, err := chat.NewStore(filepath.Join(base, "chat.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer chats.Close()

	e := newTestEnv(t, WithChatStore(chats), WithLLM(newFakeLLM(t, "grounded answer")))
	e.seedDocument(t, "report.pdf", []string{"revenue grew ten percent"})

	w := e.do(t, http.MethodPost, "/api/v1/chat/sessions", map[string]string{"title": "q&a"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create session status: got %d", w.Code)
	}
	var session chat.Session
	if err := json.NewDecoder(w.Body).Decode(&session); err != nil {
		t.Fatal(err)
	}

	w = e.do(t, http.MethodGet, "/api/v1/chat/sessions/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get session status: got %d", w.Code)
	}
	var fetched chat.Session
	if err := json.NewDecoder(w.Body).Decode(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.ID != session.ID || fetched.Title != "q&a" {
		t.Errorf("unexpected session: %+v", fetched)
	}

	w = e.do(t, http.MethodGet, "/api/v1/chat/sessions/no-such-session", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing session status: got %d", w.Code)
	}

	w = e.do(t, http.MethodPost, "/api/v1/chat/sessions/"+session.ID+"/messages",
		map[string]string{"content": "what grew?"})
	if w.Code != http.StatusOK {
		t.Fatalf("post message status: got %d, body %s", w.Code, w.Body.String())
	}
	var turn struct {
		User      *chat.Message `json:"user"`
		Assistant *chat.Message `json:"assistant"`
	}
	if err := json.NewDecoder(w.Body).Decode(&turn); err != nil {
		t.Fatal(err)
	}
	if turn.Assistant == nil || turn.Assistant.Content != "grounded answer" {
		t.Errorf("unexpected assistant turn: %+v", turn.Assistant)
	}

	w = e.do(t, http.MethodGet, "/api/v1/chat/sessions/"+session.ID+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get messages status: got %d", w.Code)
	}
	var msgs struct {
		Messages []*chat.Message `json:"messages"`
	}
	if err := json.NewDecoder(w.Body).Decode(&msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs.Messages) != 2 {
		t.Errorf("expected 2 messages, got %d", len(msgs.Messages))
	}

	w = e.do(t, http.MethodDelete, "/api/v1/chat/sessions/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("delete session status: got %d", w.Code)
	}
}

func TestChatNotEnabled(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/api/v1/chat/sessions", nil)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d", w.Code)
	}
}
