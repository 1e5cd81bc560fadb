package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/chatwire/chatwire-backend/internal/logger"
)

func newTestClient(t *testing.T, handler http.Handler) Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", server.URL)
	return NewClient(logger.NewNop())
}

func TestEmbed_ReturnsVector(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req embeddingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Input) != 1 || req.Input[0] != "hello" {
			t.Errorf("unexpected input %#v", req.Input)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{0.1, 0.2, 0.3}, "index": 0}},
		})
	}))

	vec := c.Embed(context.Background(), "hello")
	if len(vec) != 3 {
		t.Fatalf("unexpected vector %v", vec)
	}
}

func TestEmbed_EmptyInputSkipsCall(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no http call expected")
	}))

	if vec := c.Embed(context.Background(), "   "); vec != nil {
		t.Fatalf("expected nil got %v", vec)
	}
}

func TestEmbed_MissingKeyReturnsNil(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	c := NewClient(logger.NewNop())

	if vec := c.Embed(context.Background(), "hello"); vec != nil {
		t.Fatalf("expected nil got %v", vec)
	}
}

func TestEmbed_ServerErrorsExhaustRetriesToNil(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if vec := c.Embed(context.Background(), "hello"); vec != nil {
		t.Fatalf("expected nil got %v", vec)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts got %d", calls)
	}
}

func TestEmbed_RecoversOnRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float64{1}, "index": 0}},
		})
	}))

	if vec := c.Embed(context.Background(), "hello"); len(vec) != 1 {
		t.Fatalf("expected recovery on retry, got %v", vec)
	}
}

func TestGenerateText_ReturnsTrimmedContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages %#v", req.Messages)
		}
		if req.Temperature == nil || *req.Temperature != 0.3 {
			t.Errorf("unexpected temperature %v", req.Temperature)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "  advisory \n"}}},
		})
	}))

	temp := 0.3
	got, err := c.GenerateText(context.Background(), "classify", "hello", &temp)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got != "advisory" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestGenerateText_ErrorsSurface(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))

	if _, err := c.GenerateText(context.Background(), "s", "u", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestGenerateText_EmptyChoicesIsError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))

	if _, err := c.GenerateText(context.Background(), "s", "u", nil); err == nil {
		t.Fatal("expected error")
	}
}
