package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/clients/whatsapp"
	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

// DispatchService sends one reply through the provider using a tenant's
// stored connection. One attempt, outcome recorded on the message row; the
// provider owns delivery retries.
type DispatchService interface {
	Send(ctx context.Context, connection *types.Connection, recipientWaID string, text string, messageID uuid.UUID) error
}

type dispatchService struct {
	db             *gorm.DB
	log            *logger.Logger
	msgRepo        repos.MessageRepo
	whatsappClient whatsapp.Client
	tokenCipher    TokenDecrypter

	limiterMu sync.Mutex
	limiters  map[uuid.UUID]*rate.Limiter
	sendRate  rate.Limit
	sendBurst int
}

// TokenDecrypter opens the connection's stored access token.
type TokenDecrypter interface {
	Decrypt(ciphertext string) (string, error)
}

func NewDispatchService(
	db *gorm.DB,
	log *logger.Logger,
	msgRepo repos.MessageRepo,
	whatsappClient whatsapp.Client,
	tokenCipher TokenDecrypter,
	messagesPerSecond int,
) DispatchService {
	serviceLog := log.With("service", "DispatchService")
	if messagesPerSecond <= 0 {
		messagesPerSecond = 10
	}
	return &dispatchService{
		db:             db,
		log:            serviceLog,
		msgRepo:        msgRepo,
		whatsappClient: whatsappClient,
		tokenCipher:    tokenCipher,
		limiters:       map[uuid.UUID]*rate.Limiter{},
		sendRate:       rate.Limit(messagesPerSecond),
		sendBurst:      messagesPerSecond,
	}
}

func (ds *dispatchService) Send(ctx context.Context, connection *types.Connection, recipientWaID string, text string, messageID uuid.UUID) error {
	if connection == nil {
		return fmt.Errorf("no connection given")
	}
	if connection.PhoneNumberID == "" {
		ds.log.Error("Connection lacks phone number id, send skipped", "connection_id", connection.ID)
		ds.markFailed(ctx, messageID)
		return fmt.Errorf("connection %s lacks phone number id", connection.ID)
	}

	accessToken, err := ds.tokenCipher.Decrypt(connection.AccessToken)
	if err != nil {
		ds.log.Error("Failed to decrypt connection token, send skipped",
			"connection_id", connection.ID,
			"error", err,
		)
		ds.markFailed(ctx, messageID)
		return fmt.Errorf("decrypt connection token: %w", err)
	}

	if err := ds.limiterFor(connection.ID).Wait(ctx); err != nil {
		ds.markFailed(ctx, messageID)
		return fmt.Errorf("send rate limit: %w", err)
	}

	externalID, err := ds.whatsappClient.SendText(ctx, connection.PhoneNumberID, accessToken, recipientWaID, text)
	if err != nil {
		ds.log.Error("WhatsApp send failed",
			"connection_id", connection.ID,
			"recipient", recipientWaID,
			"error", err,
		)
		ds.markFailed(ctx, messageID)
		return err
	}

	if messageID != uuid.Nil {
		if err := ds.msgRepo.SetDispatchResult(ctx, nil, messageID, externalID, types.MessageStatusSent); err != nil {
			ds.log.Warn("Failed to record dispatch result", "message_id", messageID, "error", err)
		}
	}
	return nil
}

func (ds *dispatchService) markFailed(ctx context.Context, messageID uuid.UUID) {
	if messageID == uuid.Nil {
		return
	}
	if err := ds.msgRepo.UpdateStatus(ctx, nil, messageID, types.MessageStatusFailed); err != nil {
		ds.log.Warn("Failed to mark message failed", "message_id", messageID, "error", err)
	}
}

func (ds *dispatchService) limiterFor(connectionID uuid.UUID) *rate.Limiter {
	ds.limiterMu.Lock()
	defer ds.limiterMu.Unlock()
	limiter, ok := ds.limiters[connectionID]
	if !ok {
		limiter = rate.NewLimiter(ds.sendRate, ds.sendBurst)
		ds.limiters[connectionID] = limiter
	}
	return limiter
}
