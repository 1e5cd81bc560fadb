package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/clients/redis"
	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

const (
	webhookObjectType = "whatsapp_business_account"
	dedupTTL          = 10 * time.Minute
)

// WebhookService is the provider-facing boundary: subscription verification,
// signature checks, payload walking and text extraction. Once a delivery
// passes signature and structural checks the answer to the provider is always
// 200; processing problems are logged and swallowed so the provider does not
// retry-storm us.
type WebhookService interface {
	VerifySubscription(mode, token, challenge string) (string, int)
	VerifySignature(rawBody []byte, signatureHeader string) bool
	HandleEvent(ctx context.Context, rawBody []byte) string
}

type webhookService struct {
	db             *gorm.DB
	log            *logger.Logger
	connectionRepo repos.ConnectionRepo
	msgRepo        repos.MessageRepo
	dedupStore     redis.DedupStore
	routerService  RouterService
	dispatch       DispatchService
	verifyToken    string
	appSecret      string
}

func NewWebhookService(
	db *gorm.DB,
	log *logger.Logger,
	connectionRepo repos.ConnectionRepo,
	msgRepo repos.MessageRepo,
	dedupStore redis.DedupStore,
	routerService RouterService,
	dispatch DispatchService,
	verifyToken string,
	appSecret string,
) WebhookService {
	serviceLog := log.With("service", "WebhookService")
	return &webhookService{
		db:             db,
		log:            serviceLog,
		connectionRepo: connectionRepo,
		msgRepo:        msgRepo,
		dedupStore:     dedupStore,
		routerService:  routerService,
		dispatch:       dispatch,
		verifyToken:    verifyToken,
		appSecret:      appSecret,
	}
}

func (ws *webhookService) VerifySubscription(mode, token, challenge string) (string, int) {
	if mode == "subscribe" && ws.verifyToken != "" &&
		subtle.ConstantTimeCompare([]byte(token), []byte(ws.verifyToken)) == 1 {
		return challenge, http.StatusOK
	}
	ws.log.Warn("Webhook verification rejected", "mode", mode, "token", token)
	return "", http.StatusForbidden
}

func (ws *webhookService) VerifySignature(rawBody []byte, signatureHeader string) bool {
	if ws.appSecret == "" {
		ws.log.Error("Missing webhook app secret, rejecting delivery")
		return false
	}
	if signatureHeader == "" {
		ws.log.Warn("Missing webhook signature header, rejecting delivery")
		return false
	}

	mac := hmac.New(sha256.New, []byte(ws.appSecret))
	mac.Write(rawBody)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHeader)) != 1 {
		ws.log.Warn("Webhook signature mismatch",
			"expected", expected,
			"received", signatureHeader,
		)
		return false
	}
	return true
}

// -------------------- payload shapes --------------------

type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string       `json:"field"`
	Value webhookValue `json:"value"`
}

type webhookValue struct {
	Metadata struct {
		PhoneNumberID string `json:"phone_number_id"`
	} `json:"metadata"`
	Messages []inboundMessage `json:"messages"`
	Statuses []statusUpdate   `json:"statuses"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Button *struct {
		Text    string `json:"text"`
		Payload string `json:"payload"`
	} `json:"button,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
}

type statusUpdate struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// -------------------- event processing --------------------

func (ws *webhookService) HandleEvent(ctx context.Context, rawBody []byte) string {
	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		// Structurally broken payloads still get a 200 "ignored": provider
		// retries are expensive and a retry will not fix a parse error.
		ws.log.Warn("Webhook payload not parseable, ignoring", "error", err)
		return "ignored"
	}
	if payload.Object != webhookObjectType {
		ws.log.Debug("Webhook object not handled, ignoring", "object", payload.Object)
		return "ignored"
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			ws.processChange(ctx, change.Value)
		}
	}
	return "processed"
}

func (ws *webhookService) processChange(ctx context.Context, value webhookValue) {
	phoneNumberID := value.Metadata.PhoneNumberID
	connection, err := ws.connectionRepo.GetByPhoneNumberID(ctx, nil, phoneNumberID)
	if err != nil {
		ws.log.Error("Failed to resolve connection", "phone_number_id", phoneNumberID, "error", err)
		return
	}
	if connection == nil {
		ws.log.Warn("No connection for channel, skipping delivery", "phone_number_id", phoneNumberID)
		return
	}

	for _, status := range value.Statuses {
		ws.processStatus(ctx, status)
	}
	for _, message := range value.Messages {
		ws.processMessage(ctx, connection, message)
	}
}

func (ws *webhookService) processMessage(ctx context.Context, connection *types.Connection, message inboundMessage) {
	if message.ID != "" {
		// Mark seen before processing so the idempotency window closes as
		// early as possible under concurrent retried deliveries.
		first, err := ws.dedupStore.MarkSeen(ctx, message.ID, dedupTTL)
		if err != nil {
			ws.log.Error("Dedup check failed, skipping message", "external_message_id", message.ID, "error", err)
			return
		}
		if !first {
			ws.log.Debug("Duplicate delivery skipped", "external_message_id", message.ID)
			return
		}
	}

	text, ok := extractText(message)
	if !ok {
		ws.log.Warn("Unsupported message subtype, skipping",
			"external_message_id", message.ID,
			"type", message.Type,
		)
		return
	}

	result, err := ws.routerService.Route(ctx, connection.TenantID, message.From, text)
	if err != nil {
		ws.log.Error("Routing failed",
			"tenant_id", connection.TenantID,
			"sender", message.From,
			"error", err,
		)
		return
	}
	if result == nil || result.Text == "" {
		return
	}

	messageID := uuid.Nil
	if result.Message != nil {
		messageID = result.Message.ID
	}
	if err := ws.dispatch.Send(ctx, connection, message.From, result.Text, messageID); err != nil {
		// Dispatch failures never propagate to the webhook response.
		ws.log.Error("Reply dispatch failed",
			"tenant_id", connection.TenantID,
			"recipient", message.From,
			"error", err,
		)
	}
}

// processStatus correlates a delivery/read receipt back to the outbound
// message row it refers to. Receipts can arrive out of order; the status only
// moves forward.
func (ws *webhookService) processStatus(ctx context.Context, status statusUpdate) {
	ws.log.Debug("Status update received",
		"external_message_id", status.ID,
		"status", status.Status,
	)
	if status.ID == "" || status.Status == "" {
		return
	}

	message, err := ws.msgRepo.GetOutgoingByExternalID(ctx, nil, status.ID)
	if err != nil {
		ws.log.Error("Failed to load message for status update", "external_message_id", status.ID, "error", err)
		return
	}
	if message == nil {
		ws.log.Debug("Status update for unknown message", "external_message_id", status.ID)
		return
	}
	if !types.MessageStatusAdvances(message.Status, status.Status) {
		return
	}
	if err := ws.msgRepo.UpdateStatus(ctx, nil, message.ID, status.Status); err != nil {
		ws.log.Warn("Failed to apply status update", "message_id", message.ID, "error", err)
	}
}

// extractText pulls the user-visible text out of the supported message
// subtypes: plain text, button replies and interactive button/list replies.
func extractText(message inboundMessage) (string, bool) {
	switch message.Type {
	case "text":
		if message.Text != nil {
			return message.Text.Body, true
		}
	case "button":
		if message.Button != nil {
			return message.Button.Text, true
		}
	case "interactive":
		if message.Interactive != nil {
			if message.Interactive.ButtonReply != nil {
				return message.Interactive.ButtonReply.Title, true
			}
			if message.Interactive.ListReply != nil {
				return message.Interactive.ListReply.Title, true
			}
		}
	}
	return "", false
}
