package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/koso-dev/absquery/internal/domain"
)

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Stream bool `json:"stream"`
}

// newCompletionServer fakes the chat-completions endpoint, captures the last
// request and replies with the given content.
func newCompletionServer(t *testing.T, content string) (*httptest.Server, *completionRequest, *string) {
	t.Helper()
	var lastReq completionRequest
	var lastAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		lastAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&lastReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-test",
			"object": "chat.completion",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ` + mustJSON(content) + `}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &lastReq, &lastAuth
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func newTestClient(baseURL, apiKey string) *Client {
	return NewClient(&Config{APIKey: apiKey, BaseURL: baseURL, Model: "gpt-4o"})
}

func TestComplete_HappyPath(t *testing.T) {
	srv, lastReq, _ := newCompletionServer(t, "6401.0")
	c := newTestClient(srv.URL+"/v1", "sk-default")

	got, err := c.Complete(context.Background(), "system prompt", "user question", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "6401.0" {
		t.Errorf("content = %q", got)
	}

	if lastReq.Model != "gpt-4o" {
		t.Errorf("model = %q", lastReq.Model)
	}
	if lastReq.Stream {
		t.Error("stream must be false")
	}
	if len(lastReq.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(lastReq.Messages))
	}
	if lastReq.Messages[0].Role != "system" || lastReq.Messages[0].Content != "system prompt" {
		t.Errorf("system turn = %+v", lastReq.Messages[0])
	}
	if lastReq.Messages[1].Role != "user" || lastReq.Messages[1].Content != "user question" {
		t.Errorf("user turn = %+v", lastReq.Messages[1])
	}
}

func TestComplete_NoCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request may be issued without a credential")
	}))
	defer srv.Close()
	c := newTestClient(srv.URL+"/v1", "")

	_, err := c.Complete(context.Background(), "s", "u", "")
	if !errors.Is(err, domain.ErrAuthMissing) {
		t.Fatalf("expected ErrAuthMissing, got %v", err)
	}
}

func TestComplete_OverrideBeatsDefault(t *testing.T) {
	srv, _, lastAuth := newCompletionServer(t, "ok")
	c := newTestClient(srv.URL+"/v1", "sk-default")

	if _, err := c.Complete(context.Background(), "s", "u", "sk-override"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *lastAuth != "Bearer sk-override" {
		t.Errorf("authorization = %q, want the per-call override", *lastAuth)
	}
}

func TestComplete_DefaultKeyWhenNoOverride(t *testing.T) {
	srv, _, lastAuth := newCompletionServer(t, "ok")
	c := newTestClient(srv.URL+"/v1", "sk-default")

	if _, err := c.Complete(context.Background(), "s", "u", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *lastAuth != "Bearer sk-default" {
		t.Errorf("authorization = %q", *lastAuth)
	}
}

func TestComplete_UpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "model overloaded", "type": "server_error"}}`))
	}))
	defer srv.Close()
	c := newTestClient(srv.URL+"/v1", "sk-default")

	_, err := c.Complete(context.Background(), "s", "u", "")
	if !errors.Is(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	var upstream *domain.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatal("expected an UpstreamError with diagnostics")
	}
	if upstream.Status != http.StatusInternalServerError {
		t.Errorf("status = %d", upstream.Status)
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "choices": []}`))
	}))
	defer srv.Close()
	c := newTestClient(srv.URL+"/v1", "sk-default")

	_, err := c.Complete(context.Background(), "s", "u", "")
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestReady(t *testing.T) {
	if !newTestClient("http://unused/v1", "sk").Ready() {
		t.Error("configured client must be ready")
	}
	if newTestClient("http://unused/v1", "").Ready() {
		t.Error("client without a key must not be ready")
	}
}
