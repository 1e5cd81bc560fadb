package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/services"
)

type WebhookHandler struct {
	log             *logger.Logger
	webhookService  services.WebhookService
	signatureHeader string
}

func NewWebhookHandler(log *logger.Logger, webhookService services.WebhookService, signatureHeader string) *WebhookHandler {
	if signatureHeader == "" {
		signatureHeader = "X-Hub-Signature-256"
	}
	return &WebhookHandler{
		log:             log.With("handler", "WebhookHandler"),
		webhookService:  webhookService,
		signatureHeader: signatureHeader,
	}
}

// Verify answers the provider's subscription handshake. Some intermediary
// proxies rewrite dots to underscores in query keys, so both forms are read.
func (wh *WebhookHandler) Verify(c *gin.Context) {
	mode := firstQuery(c, "hub.mode", "hub_mode")
	token := firstQuery(c, "hub.verify_token", "hub_verify_token")
	challenge := firstQuery(c, "hub.challenge", "hub_challenge")

	body, status := wh.webhookService.VerifySubscription(mode, token, challenge)
	if status != http.StatusOK {
		c.JSON(status, gin.H{"error": "verification failed"})
		return
	}
	c.String(http.StatusOK, body)
}

// Receive handles event deliveries. Signature failures are the only path to a
// non-200 response; everything past that check is acknowledged.
func (wh *WebhookHandler) Receive(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		wh.log.Warn("Failed to read webhook body", "error", err)
		c.JSON(http.StatusForbidden, gin.H{"status": "rejected"})
		return
	}

	if !wh.webhookService.VerifySignature(rawBody, c.GetHeader(wh.signatureHeader)) {
		c.JSON(http.StatusForbidden, gin.H{"status": "rejected"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	status := wh.webhookService.HandleEvent(ctx, rawBody)
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, key := range keys {
		if value := c.Query(key); value != "" {
			return value
		}
	}
	return ""
}
