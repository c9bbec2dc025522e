package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docqa/internal/domain"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	t.Setenv("DOCQA_TEST_LLM_KEY", "test-key")
	c, err := NewClient(Options{
		APIKeyEnv: "DOCQA_TEST_LLM_KEY",
		BaseURL:   url,
		Model:     "test-model",
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient(Options{APIKeyEnv: "DOCQA_TEST_NO_SUCH_LLM_KEY"})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"The answer is 42."}}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	got, err := c.Complete(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "What is the answer?"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "The answer is 42." {
		t.Errorf("unexpected completion: %q", got)
	}
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom"}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Complete(context.Background(), nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\", \"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"world\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	ch, err := c.Stream(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "greet"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	for tok := range ch {
		if tok.Err != nil {
			t.Fatalf("unexpected stream error: %v", tok.Err)
		}
		sb.WriteString(tok.Content)
	}
	if sb.String() != "Hello, world" {
		t.Errorf("unexpected assembled stream: %q", sb.String())
	}
}

func TestStream_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if _, err := c.Stream(context.Background(), nil); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}

func TestModelName(t *testing.T) {
	c := newTestClient(t, "http://unused")
	if c.ModelName() != "test-model" {
		t.Errorf("unexpected model name %q", c.ModelName())
	}
}
