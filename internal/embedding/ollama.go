package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Default Ollama configuration.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768 // nomic-embed-text
)

// OllamaConfig configures the Ollama embedding client.
type OllamaConfig struct {
	BaseURL    string
	Model      string
	Dimensions int
	Timeout    time.Duration
}

// OllamaEmbedder generates embeddings through an Ollama server.
type OllamaEmbedder struct {
	client     *http.Client
	baseURL    string
	model      string
	dimensions int
	logger     *zap.Logger // optional; when set, logs per-item batch failures
}

// OllamaOption configures an OllamaEmbedder.
type OllamaOption func(*OllamaEmbedder)

// WithLogger sets a logger for embedding failure events.
func WithLogger(l *zap.Logger) OllamaOption {
	return func(e *OllamaEmbedder) { e.logger = l }
}

// NewOllamaEmbedder creates an Ollama embedding client.
func NewOllamaEmbedder(cfg OllamaConfig, opts ...OllamaOption) *OllamaEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	e := &OllamaEmbedder{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for text. Fails with an error, never a zero
// vector; zero-vector substitution is a batch-level policy.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, msg)
	}
	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embedding) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(out.Embedding), e.dimensions)
	}
	return out.Embedding, nil
}

// EmbedBatch embeds each text in order. A per-item provider failure yields a
// zero vector for that item and a warning log; the rest of the batch is
// unaffected.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			if e.logger != nil {
				e.logger.Warn("embedding failed, substituting zero vector",
					zap.Int("item", i), zap.Error(err))
			}
			embeddings[i] = make([]float32, e.dimensions)
			continue
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dimensions
}

// Available probes the Ollama server.
func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Close is a no-op for OllamaEmbedder.
func (e *OllamaEmbedder) Close() error { return nil }
