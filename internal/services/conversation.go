package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

// ConversationService is the admin surface over conversations: inspection,
// human takeover and handback. Takeover flips the status to human, which the
// router honors by staying silent.
type ConversationService interface {
	List(ctx context.Context, tenantID uuid.UUID, limit int) ([]*types.Conversation, error)
	Messages(ctx context.Context, tenantID uuid.UUID, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	Takeover(ctx context.Context, tenantID uuid.UUID, conversationID uuid.UUID) error
	Handback(ctx context.Context, tenantID uuid.UUID, conversationID uuid.UUID) error
}

type conversationService struct {
	db       *gorm.DB
	log      *logger.Logger
	convRepo repos.ConversationRepo
	msgRepo  repos.MessageRepo
}

func NewConversationService(db *gorm.DB, log *logger.Logger, convRepo repos.ConversationRepo, msgRepo repos.MessageRepo) ConversationService {
	serviceLog := log.With("service", "ConversationService")
	return &conversationService{db: db, log: serviceLog, convRepo: convRepo, msgRepo: msgRepo}
}

func (cs *conversationService) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]*types.Conversation, error) {
	conversations, err := cs.convRepo.ListByTenantID(ctx, nil, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

func (cs *conversationService) Messages(ctx context.Context, tenantID uuid.UUID, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	if _, err := cs.getOwned(ctx, tenantID, conversationID); err != nil {
		return nil, err
	}
	messages, err := cs.msgRepo.ListByConversationID(ctx, nil, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

func (cs *conversationService) Takeover(ctx context.Context, tenantID uuid.UUID, conversationID uuid.UUID) error {
	conversation, err := cs.getOwned(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}
	if conversation.Status == types.ConversationStatusClosed {
		return fmt.Errorf("conversation is closed")
	}
	if err := cs.convRepo.UpdateStatus(ctx, nil, conversationID, types.ConversationStatusHuman); err != nil {
		return fmt.Errorf("take over conversation: %w", err)
	}
	cs.log.Info("Conversation taken over by human", "conversation_id", conversationID)
	return nil
}

func (cs *conversationService) Handback(ctx context.Context, tenantID uuid.UUID, conversationID uuid.UUID) error {
	conversation, err := cs.getOwned(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}
	if conversation.Status != types.ConversationStatusHuman && conversation.Status != types.ConversationStatusEscalated {
		return fmt.Errorf("conversation is not under human control")
	}
	if err := cs.convRepo.UpdateStatus(ctx, nil, conversationID, types.ConversationStatusBot); err != nil {
		return fmt.Errorf("hand back conversation: %w", err)
	}
	cs.log.Info("Conversation handed back to bot", "conversation_id", conversationID)
	return nil
}

func (cs *conversationService) getOwned(ctx context.Context, tenantID uuid.UUID, conversationID uuid.UUID) (*types.Conversation, error) {
	conversation, err := cs.convRepo.GetByID(ctx, nil, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conversation == nil || conversation.TenantID != tenantID {
		return nil, fmt.Errorf("conversation not found")
	}
	return conversation, nil
}
