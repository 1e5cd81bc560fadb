package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chatwire/chatwire-backend/internal/logger"
)

// Client is the OpenAI API surface the engine needs: query/knowledge
// embeddings and plain chat completions for classification and advisory
// answers.
type Client interface {
	// Embed returns the embedding vector for text, or nil when no vector
	// could be produced. Missing API key, empty input, non-2xx responses and
	// malformed payloads are all logged and reported as "no vector", never as
	// an error; callers must treat nil as a normal outcome.
	Embed(ctx context.Context, text string) []float32

	// GenerateText runs a single system+user chat completion. A nil
	// temperature leaves the model default in place.
	GenerateText(ctx context.Context, system string, user string, temperature *float64) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	embedModel string
	httpClient *http.Client

	embedRetries int
	embedBackoff time.Duration
}

func NewClient(log *logger.Logger) Client {
	clientLog := log.With("client", "OpenAIClient")

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		// Not fatal: the AI engine degrades to its fixed fallbacks.
		clientLog.Error("Missing OPENAI_API_KEY, embedding and completion calls will be skipped")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}

	embedModel := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}

	timeoutSec := 30
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &client{
		log:          clientLog,
		baseURL:      baseURL,
		apiKey:       apiKey,
		model:        model,
		embedModel:   embedModel,
		httpClient:   &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		embedRetries: 2,
		embedBackoff: 500 * time.Millisecond,
	}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, text string) []float32 {
	if strings.TrimSpace(text) == "" {
		c.log.Debug("Embed called with empty input, skipping")
		return nil
	}
	if c.apiKey == "" {
		c.log.Error("Embed skipped, missing OPENAI_API_KEY")
		return nil
	}

	req := embeddingsRequest{
		Model: c.embedModel,
		Input: []string{strings.TrimSpace(text)},
	}

	var lastStatus int
	var lastBody string
	for attempt := 0; attempt <= c.embedRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				c.log.Warn("Embed aborted by context", "error", ctx.Err())
				return nil
			case <-time.After(c.embedBackoff):
			}
		}

		var resp embeddingsResponse
		status, body, err := c.do(ctx, "POST", "/v1/embeddings", req, &resp)
		if err != nil {
			lastStatus = status
			lastBody = body
			c.log.Warn("Embedding call failed",
				"attempt", attempt+1,
				"status", status,
				"body", truncate(body, 500),
				"error", err,
			)
			continue
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			c.log.Warn("Embedding response carried no vector",
				"attempt", attempt+1,
				"status", status,
				"body", truncate(body, 500),
			)
			lastStatus = status
			lastBody = body
			continue
		}

		vec := make([]float32, len(resp.Data[0].Embedding))
		for i, f := range resp.Data[0].Embedding {
			vec[i] = float32(f)
		}
		return vec
	}

	c.log.Error("Embedding failed after retries",
		"attempts", c.embedRetries+1,
		"last_status", lastStatus,
		"last_body", truncate(lastBody, 500),
		"model", c.embedModel,
	)
	return nil
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *client) GenerateText(ctx context.Context, system string, user string, temperature *float64) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("missing OPENAI_API_KEY")
	}

	req := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
	}

	var resp chatCompletionResponse
	status, body, err := c.do(ctx, "POST", "/v1/chat/completions", req, &resp)
	if err != nil {
		c.log.Warn("Completion call failed",
			"status", status,
			"body", truncate(body, 500),
			"error", err,
		)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response carried no choices: %s", truncate(body, 200))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("completion response carried empty content")
	}
	return text, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) (int, string, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp.StatusCode, "", readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, string(raw), fmt.Errorf("openai http %d", resp.StatusCode)
	}
	if out != nil {
		if uErr := json.Unmarshal(raw, out); uErr != nil {
			return resp.StatusCode, string(raw), fmt.Errorf("openai decode error: %w", uErr)
		}
	}
	return resp.StatusCode, string(raw), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
