package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, handler func(req chatRequest) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/chat/completions":
			var req chatRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			resp := chatResponse{}
			resp.Choices = append(resp.Choices, struct {
				Message chatMessage `json:"message"`
			}{Message: chatMessage{Role: "assistant", Content: handler(req)}})
			json.NewEncoder(w).Encode(resp)
		case "/v1/models":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestAnswerIncludesContext(t *testing.T) {
	var seen chatRequest
	srv := newTestServer(t, func(req chatRequest) string {
		seen = req
		return "  the answer  "
	})
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	got, err := c.Answer(context.Background(), "what grew?", []string{"revenue grew", "expenses flat"})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if got != "the answer" {
		t.Errorf("expected trimmed answer, got %q", got)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" {
		t.Fatalf("expected system + user messages, got %+v", seen.Messages)
	}
	user := seen.Messages[1].Content
	for _, want := range []string{"revenue grew", "expenses flat", "what grew?"} {
		if !strings.Contains(user, want) {
			t.Errorf("user message missing %q:\n%s", want, user)
		}
	}
}

func TestAnswerWithoutPassagesFallsBackToChat(t *testing.T) {
	var seen chatRequest
	srv := newTestServer(t, func(req chatRequest) string {
		seen = req
		return "direct"
	})
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	got, err := c.Answer(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if got != "direct" {
		t.Errorf("unexpected answer %q", got)
	}
	if len(seen.Messages) != 1 || seen.Messages[0].Role != "user" {
		t.Errorf("expected a single user message, got %+v", seen.Messages)
	}
}

func TestServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if _, err := c.Chat(context.Background(), "q"); err == nil {
		t.Error("expected error from failing server")
	}
	if c.Available(context.Background()) {
		t.Error("expected Available to be false when /v1/models fails")
	}
}

func TestAvailable(t *testing.T) {
	srv := newTestServer(t, func(chatRequest) string { return "" })
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL})
	if !c.Available(context.Background()) {
		t.Error("expected server to be available")
	}

	down := NewClient(Config{BaseURL: "http://127.0.0.1:1"})
	if down.Available(context.Background()) {
		t.Error("expected unreachable server to be unavailable")
	}
}
