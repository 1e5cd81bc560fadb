package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type ChatbotTriggerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, trigger *types.ChatbotTrigger) (*types.ChatbotTrigger, error)
	GetByChatbotID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) ([]*types.ChatbotTrigger, error)
}

type chatbotTriggerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatbotTriggerRepo(db *gorm.DB, baseLog *logger.Logger) ChatbotTriggerRepo {
	repoLog := baseLog.With("repo", "ChatbotTriggerRepo")
	return &chatbotTriggerRepo{db: db, log: repoLog}
}

func (tr *chatbotTriggerRepo) Create(ctx context.Context, tx *gorm.DB, trigger *types.ChatbotTrigger) (*types.ChatbotTrigger, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	if err := transaction.WithContext(ctx).Create(trigger).Error; err != nil {
		return nil, err
	}
	return trigger, nil
}

func (tr *chatbotTriggerRepo) GetByChatbotID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) ([]*types.ChatbotTrigger, error) {
	transaction := tx
	if transaction == nil {
		transaction = tr.db
	}

	var results []*types.ChatbotTrigger
	if err := transaction.WithContext(ctx).
		Where("chatbot_id = ?", chatbotID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
