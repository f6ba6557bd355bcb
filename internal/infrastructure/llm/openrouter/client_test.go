package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/jd-copilot/internal/core/domain"
	"github.com/kirillkom/jd-copilot/internal/core/ports"
)

func TestGeneratePostsChatCompletion(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":" Acme wants SQL. "}}]}`))
	}))
	defer server.Close()

	client := New("secret", "", WithBaseURL(server.URL))
	text, err := client.Generate(context.Background(), "policy", "question", ports.GenerateOptions{MaxTokens: 2048})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "Acme wants SQL." {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Model != DefaultModel || got.MaxTokens != 2048 || got.Temperature != 0 {
		t.Fatalf("unexpected request %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "question" {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestGenerateEmptyChoicesIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	text, err := New("k", "m", WithBaseURL(server.URL)).Generate(context.Background(), "", "q", ports.GenerateOptions{})
	if err != nil || text != "" {
		t.Fatalf("Generate() = %q, %v", text, err)
	}
}

func TestGenerateRateLimitIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := New("k", "m", WithBaseURL(server.URL)).Generate(context.Background(), "", "q", ports.GenerateOptions{})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}
