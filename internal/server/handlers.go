package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/TWAKATitan/Local-RAG/internal/chat"
	"github.com/TWAKATitan/Local-RAG/internal/index"
	"github.com/TWAKATitan/Local-RAG/internal/keyword"
	"github.com/TWAKATitan/Local-RAG/internal/models"
)

// maxUploadBytes caps document uploads at 100 MB.
const maxUploadBytes = 100 << 20

// handleUploadDocument accepts a multipart PDF upload, stores it in the
// documents directory, and ingests it.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		s.respondError(w, http.StatusBadRequest, "only PDF files are accepted")
		return
	}

	if err := os.MkdirAll(s.cfg.Storage.DocumentsDir, 0o755); err != nil {
		s.logger.Error("creating documents dir failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	dest := filepath.Join(s.cfg.Storage.DocumentsDir, filename)
	out, err := os.Create(dest)
	if err != nil {
		s.logger.Error("creating upload target failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		_ = os.Remove(dest)
		s.respondError(w, http.StatusInternalServerError, "failed to store file")
		return
	}
	out.Close()

	result, err := s.lifecycle.Ingest(r.Context(), dest)
	if err != nil {
		s.logger.Error("ingest failed", zap.String("file", filename), zap.Error(err))
		_ = os.Remove(dest)
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.lifecycle.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("listing documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": docs,
		"count":     len(docs),
	})
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	force := r.URL.Query().Get("force") == "true"
	s.logger.Debug("delete document request", zap.String("file", filename), zap.Bool("force", force))

	result, err := s.lifecycle.Delete(r.Context(), filename, force)
	if err != nil {
		s.logger.Error("deletion failed", zap.String("file", filename), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	status := http.StatusOK
	if !result.Success {
		if result.NoOp() {
			status = http.StatusNotFound
		} else {
			status = http.StatusConflict
		}
	}
	s.respondJSON(w, status, result)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		s.respondError(w, http.StatusBadRequest, "pass confirm=true to delete every document")
		return
	}
	result, err := s.lifecycle.DeleteAll(r.Context())
	if err != nil {
		s.logger.Error("delete all failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type queryRequest struct {
	Question  string   `json:"question"`
	TopK      int      `json:"top_k"`
	Threshold *float64 `json:"threshold,omitempty"`
	Rerank    *bool    `json:"rerank,omitempty"`
	Answer    bool     `json:"answer"`
}

type queryResponse struct {
	Question string                  `json:"question"`
	Chunks   []models.RetrievedChunk `json:"chunks"`
	Answer   string                  `json:"answer,omitempty"`
}

// handleQuery runs semantic retrieval and, when requested and available,
// generates an answer grounded in the retrieved chunks.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	opts := index.QueryOptions{
		TopK:      req.TopK,
		Threshold: s.cfg.Retrieval.Threshold,
		Rerank:    s.cfg.Retrieval.Rerank,
	}
	if opts.TopK <= 0 {
		opts.TopK = s.cfg.Retrieval.TopK
	}
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if req.Rerank != nil {
		opts.Rerank = *req.Rerank
	}

	chunks, err := s.retriever.Query(r.Context(), req.Question, opts)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := queryResponse{Question: req.Question, Chunks: chunks}
	if req.Answer && s.llm != nil {
		passages := make([]string, len(chunks))
		for i, c := range chunks {
			passages[i] = c.Content
		}
		answer, err := s.llm.Answer(r.Context(), req.Question, passages)
		if err != nil {
			s.logger.Warn("answer generation failed", zap.Error(err))
		} else {
			resp.Answer = answer
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type searchRequest struct {
	Query string `json:"query"`
	Mode  string `json:"mode"` // semantic (default) or keyword
	Limit int    `json:"limit"`
	Fuzzy bool   `json:"fuzzy"`
}

// handleSearch exposes raw retrieval without answer generation, in either
// semantic or keyword mode.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.cfg.Retrieval.TopK
	}

	switch req.Mode {
	case "", "semantic":
		chunks, err := s.retriever.Query(r.Context(), req.Query, index.QueryOptions{
			TopK:      req.Limit,
			Threshold: s.cfg.Retrieval.Threshold,
			Rerank:    s.cfg.Retrieval.Rerank,
		})
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"mode": "semantic", "results": chunks})
	case "keyword":
		if s.keywords == nil {
			s.respondError(w, http.StatusNotImplemented, "keyword search not enabled")
			return
		}
		var opts *keyword.SearchOptions
		if req.Fuzzy {
			opts = &keyword.SearchOptions{FuzzyEnabled: true}
		}
		hits, err := s.keywords.Search(r.Context(), req.Query, req.Limit, opts)
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"mode": "keyword", "results": hits})
	default:
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown search mode %q", req.Mode))
	}
}

func (s *Server) handleConsistency(w http.ResponseWriter, r *http.Request) {
	report, err := s.lifecycle.AuditConsistency(r.Context())
	if err != nil {
		s.logger.Error("consistency audit failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request) {
	result, err := s.lifecycle.RepairOrphans(r.Context())
	if err != nil {
		s.logger.Error("repair failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStatus reports index sizes, backend identity, and the reachability
// of the external services.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Error("status: vector stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := map[string]interface{}{
		"vector_store":        stats,
		"embedding_available": s.embedder.Available(ctx),
	}
	if s.keywords != nil {
		if count, err := s.keywords.Count(); err == nil {
			resp["keyword_chunks"] = count
		}
	}
	if s.llm != nil {
		resp["llm_available"] = s.llm.Available(ctx)
	}
	resp["config"] = map[string]interface{}{
		"embedding_model":      s.cfg.Embedding.Model,
		"embedding_dimensions": s.cfg.Embedding.Dimensions,
		"chunk_target_tokens":  s.cfg.Chunking.TargetTokens,
		"chunk_overlap_tokens": s.cfg.Chunking.OverlapTokens,
		"top_k":                s.cfg.Retrieval.TopK,
		"rerank":               s.cfg.Retrieval.Rerank,
		"vector_backend":       s.cfg.Storage.VectorBackend,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type createSessionRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		s.respondError(w, http.StatusNotImplemented, "chat not enabled")
		return
	}
	var req createSessionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	session, err := s.chats.CreateSession(r.Context(), req.Title)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, session)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		s.respondError(w, http.StatusNotImplemented, "chat not enabled")
		return
	}
	sessions, err := s.chats.ListSessions(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		s.respondError(w, http.StatusNotImplemented, "chat not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.chats.GetSession(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	msgs, err := s.chats.Messages(r.Context(), id)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// handlePostMessage records a user turn, answers it with retrieval-backed
// generation, records the assistant turn, and returns both.
func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		s.respondError(w, http.StatusNotImplemented, "chat not enabled")
		return
	}
	if s.llm == nil {
		s.respondError(w, http.StatusNotImplemented, "llm not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	userMsg, err := s.chats.AppendMessage(r.Context(), id, chat.RoleUser, req.Content)
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var passages []string
	chunks, err := s.retriever.Query(r.Context(), req.Content, index.QueryOptions{
		TopK:      s.cfg.Retrieval.TopK,
		Threshold: s.cfg.Retrieval.Threshold,
		Rerank:    s.cfg.Retrieval.Rerank,
	})
	if err != nil {
		s.logger.Warn("chat retrieval failed, answering without context", zap.Error(err))
	} else {
		for _, c := range chunks {
			passages = append(passages, c.Content)
		}
	}

	answer, err := s.llm.Answer(r.Context(), req.Content, passages)
	if err != nil {
		s.logger.Error("chat answer failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	assistantMsg, err := s.chats.AppendMessage(r.Context(), id, chat.RoleAssistant, answer)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":      userMsg,
		"assistant": assistantMsg,
		"chunks":    chunks,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		s.respondError(w, http.StatusNotImplemented, "chat not enabled")
		return
	}
	session, err := s.chats.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if s.chats == nil {
		s.respondError(w, http.StatusNotImplemented, "chat not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.chats.DeleteSession(r.Context(), id); err != nil {
		s.respondError(w, http.StatusNotFound, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
