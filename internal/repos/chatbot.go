package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type ChatbotRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chatbot *types.Chatbot) (*types.Chatbot, error)
	GetByID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) (*types.Chatbot, error)
	// GetActiveByTenantID returns the tenant's single active chatbot, or nil.
	GetActiveByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Chatbot, error)
}

type chatbotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatbotRepo(db *gorm.DB, baseLog *logger.Logger) ChatbotRepo {
	repoLog := baseLog.With("repo", "ChatbotRepo")
	return &chatbotRepo{db: db, log: repoLog}
}

func (cr *chatbotRepo) Create(ctx context.Context, tx *gorm.DB, chatbot *types.Chatbot) (*types.Chatbot, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).Create(chatbot).Error; err != nil {
		return nil, err
	}
	return chatbot, nil
}

func (cr *chatbotRepo) GetByID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) (*types.Chatbot, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Chatbot
	err := transaction.WithContext(ctx).
		Where("id = ?", chatbotID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *chatbotRepo) GetActiveByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Chatbot, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Chatbot
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("updated_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
