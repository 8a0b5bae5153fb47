// Package server provides the HTTP API for the Local-RAG service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/TWAKATitan/Local-RAG/internal/chat"
	"github.com/TWAKATitan/Local-RAG/internal/config"
	"github.com/TWAKATitan/Local-RAG/internal/embedding"
	"github.com/TWAKATitan/Local-RAG/internal/index"
	"github.com/TWAKATitan/Local-RAG/internal/keyword"
	"github.com/TWAKATitan/Local-RAG/internal/lifecycle"
	"github.com/TWAKATitan/Local-RAG/internal/llm"
	"github.com/TWAKATitan/Local-RAG/internal/vectorstore"
)

// Server is the HTTP server for the Local-RAG API.
type Server struct {
	cfg       *config.Config
	lifecycle *lifecycle.Manager
	retriever *index.Manager
	store     vectorstore.Store
	embedder  embedding.Embedder
	keywords  keyword.Index // optional
	chats     *chat.Store   // optional
	llm       *llm.Client   // optional
	logger    *zap.Logger
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithKeywordIndex enables the keyword search mode.
func WithKeywordIndex(idx keyword.Index) Option {
	return func(s *Server) { s.keywords = idx }
}

// WithChatStore enables the chat endpoints.
func WithChatStore(store *chat.Store) Option {
	return func(s *Server) { s.chats = store }
}

// WithLLM enables answer generation on the query endpoint.
func WithLLM(client *llm.Client) Option {
	return func(s *Server) { s.llm = client }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	cfg *config.Config,
	lm *lifecycle.Manager,
	retriever *index.Manager,
	store vectorstore.Store,
	embedder embedding.Embedder,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:       cfg,
		lifecycle: lm,
		retriever: retriever,
		store:     store,
		embedder:  embedder,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the chi router with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(300 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleUploadDocument)
		r.Get("/documents", s.handleListDocuments)
		r.Delete("/documents", s.handleDeleteAll)
		r.Delete("/documents/{filename}", s.handleDeleteDocument)

		r.Post("/query", s.handleQuery)
		r.Post("/search", s.handleSearch)

		r.Get("/consistency", s.handleConsistency)
		r.Post("/repair", s.handleRepair)
		r.Get("/status", s.handleStatus)

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Get("/{id}", s.handleGetSession)
			r.Get("/{id}/messages", s.handleGetMessages)
			r.Post("/{id}/messages", s.handlePostMessage)
			r.Delete("/{id}", s.handleDeleteSession)
		})
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
