// Package llm talks to a local OpenAI-compatible chat completion server
// (LM Studio, llama.cpp server, or similar) to turn retrieved chunks into
// answers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Default LM Studio configuration.
const (
	DefaultBaseURL     = "http://localhost:1234"
	DefaultTimeout     = 120 * time.Second
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
)

// Config configures the chat completion client.
type Config struct {
	BaseURL     string
	Model       string // empty lets the server pick its loaded model
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client is an OpenAI-compatible chat completion client.
type Client struct {
	client      *http.Client
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

// NewClient creates a chat completion client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     cfg.BaseURL,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const answerSystemPrompt = `You are a helpful assistant that answers questions using the provided document excerpts. Base your answer only on the excerpts. If they do not contain the answer, say so plainly.`

// Answer generates an answer to question grounded in the given context
// passages. An empty passages slice falls back to Chat.
func (c *Client) Answer(ctx context.Context, question string, passages []string) (string, error) {
	if len(passages) == 0 {
		return c.Chat(ctx, question)
	}
	var b strings.Builder
	b.WriteString("Document excerpts:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n\n", i+1, p)
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: b.String()},
	})
}

const condenseSystemPrompt = `You condense documents. Rewrite the provided text to roughly half its length, keeping every fact, figure, and named entity. Output only the condensed text.`

// Condense rewrites text into a shorter form that keeps its facts, for
// pre-chunking summarization of long documents.
func (c *Client) Condense(ctx context.Context, text string) (string, error) {
	return c.complete(ctx, []chatMessage{
		{Role: "system", Content: condenseSystemPrompt},
		{Role: "user", Content: text},
	})
}

// Chat sends a question directly, with no retrieval context.
func (c *Client) Chat(ctx context.Context, question string) (string, error) {
	return c.complete(ctx, []chatMessage{
		{Role: "user", Content: question},
	})
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("llm error (status %d): %s", resp.StatusCode, msg)
	}
	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// Available probes the server's model listing endpoint.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
