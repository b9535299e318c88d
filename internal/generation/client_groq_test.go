package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"phytovet/internal/config"
)

func newTestGroqClient(t *testing.T, baseURL string) *GroqClient {
	t.Helper()
	cfg := config.DefaultConfig().Generation
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL
	cfg.Timeout = "5s"

	c := NewGroqClient(cfg)
	t.Cleanup(c.httpClient.CloseIdleConnections)
	return c
}

func completionBody(content string) string {
	return fmt.Sprintf(`{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "openai/gpt-oss-120b",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": %q}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
	}`, content)
}

func TestGroqCompleteWithSystem(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, completionBody("  Verified diagnosis.  "))
	}))
	t.Cleanup(srv.Close)

	c := newTestGroqClient(t, srv.URL)
	got, err := c.CompleteWithSystem(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("CompleteWithSystem failed: %v", err)
	}
	if want := "Verified diagnosis."; got != want {
		t.Fatalf("completion = %q, want %q (trimmed)", got, want)
	}

	if gotReq.Model != "openai/gpt-oss-120b" {
		t.Fatalf("request model = %q", gotReq.Model)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Fatalf("request messages = %+v", gotReq.Messages)
	}
	if gotReq.MaxTokens != 1024 {
		t.Fatalf("request max tokens = %d, want 1024", gotReq.MaxTokens)
	}
	if gotReq.Temperature != 0.3 {
		t.Fatalf("request temperature = %v, want 0.3", gotReq.Temperature)
	}
}

func TestGroqCompleteWithSystem_RetriesRateLimit(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) == 1 {
			http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody("second try"))
	}))
	t.Cleanup(srv.Close)

	c := newTestGroqClient(t, srv.URL)
	got, err := c.CompleteWithSystem(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("CompleteWithSystem failed: %v", err)
	}
	if got != "second try" {
		t.Fatalf("completion = %q, want %q", got, "second try")
	}
	if n := requests.Load(); n != 2 {
		t.Fatalf("requests = %d, want 2", n)
	}
}

func TestGroqCompleteWithSystem_ServerErrorIsTerminal(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "internal", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := newTestGroqClient(t, srv.URL)
	_, err := c.CompleteWithSystem(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("CompleteWithSystem succeeded, want error")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("error = %v, want status 500 mention", err)
	}
	if n := requests.Load(); n != 1 {
		t.Fatalf("requests = %d, want 1 (5xx is not retried)", n)
	}
}

func TestGroqCompleteWithSystem_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": "chatcmpl-2", "choices": []}`)
	}))
	t.Cleanup(srv.Close)

	c := newTestGroqClient(t, srv.URL)
	got, err := c.CompleteWithSystem(context.Background(), "s", "u")
	if err != nil {
		t.Fatalf("CompleteWithSystem failed: %v", err)
	}
	if got != "" {
		t.Fatalf("completion = %q, want empty string for no choices", got)
	}
}

func TestGroqCompleteWithSystem_APIErrorObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": {"message": "model decommissioned", "type": "invalid_request_error"}}`)
	}))
	t.Cleanup(srv.Close)

	c := newTestGroqClient(t, srv.URL)
	_, err := c.CompleteWithSystem(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("CompleteWithSystem succeeded, want error")
	}
	if !strings.Contains(err.Error(), "model decommissioned") {
		t.Fatalf("error = %v, want API error message", err)
	}
}

func TestGroqCompleteWithSystem_NoAPIKey(t *testing.T) {
	cfg := config.DefaultConfig().Generation
	cfg.BaseURL = "http://127.0.0.1:1"
	cfg.Timeout = "1s"

	c := NewGroqClient(cfg)
	if _, err := c.CompleteWithSystem(context.Background(), "s", "u"); err == nil {
		t.Fatal("CompleteWithSystem succeeded without key, want error")
	}
}
