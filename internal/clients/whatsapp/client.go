package whatsapp

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

// Client issues send calls against the provider's per-channel message
// endpoint. The contract is attempt once, report outcome; delivery retries are
// the provider's responsibility.
type Client interface {
	// SendText posts a text message and returns the provider-assigned message
	// id on success.
	SendText(ctx context.Context, phoneNumberID string, accessToken string, recipientWaID string, text string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewClient(log *logger.Logger) Client {
	clientLog := log.With("client", "WhatsAppClient")

	baseURL := strings.TrimSpace(os.Getenv("WHATSAPP_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v19.0"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	timeoutSec := 15
	if v := os.Getenv("WHATSAPP_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &client{
		log:        clientLog,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type sendTextRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             sendTextBody `json:"text"`
}

type sendTextBody struct {
	Body string `json:"body"`
}

type sendTextResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *client) SendText(ctx context.Context, phoneNumberID string, accessToken string, recipientWaID string, text string) (string, error) {
	if strings.TrimSpace(phoneNumberID) == "" {
		return "", fmt.Errorf("missing phone number id")
	}
	if strings.TrimSpace(accessToken) == "" {
		return "", fmt.Errorf("missing access token")
	}

	payload := sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               recipientWaID,
		Type:             "text",
		Text:             sendTextBody{Body: text},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp send: %w", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}

	c.log.Debug("WhatsApp send completed",
		"phone_number_id", phoneNumberID,
		"recipient", recipientWaID,
		"status", resp.StatusCode,
		"body", string(raw),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("whatsapp send http %d: %s", resp.StatusCode, string(raw))
	}

	var out sendTextResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("whatsapp send decode: %w", err)
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}
