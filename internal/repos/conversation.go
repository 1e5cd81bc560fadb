package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type ConversationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) (*types.Conversation, error)
	GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error)
	GetOpenByTenantAndSender(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, senderWaID string) (*types.Conversation, error)
	ListByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]*types.Conversation, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, status string) error
	TouchActivity(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, messageAt *time.Time) error
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	repoLog := baseLog.With("repo", "ConversationRepo")
	return &conversationRepo{db: db, log: repoLog}
}

func (cr *conversationRepo) Create(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) (*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if conversation == nil {
		return nil, errors.New("no conversation given")
	}
	if err := transaction.WithContext(ctx).Create(conversation).Error; err != nil {
		return nil, err
	}
	return conversation, nil
}

func (cr *conversationRepo) GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Conversation
	err := transaction.WithContext(ctx).
		Where("id = ?", conversationID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *conversationRepo) GetOpenByTenantAndSender(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, senderWaID string) (*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Conversation
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND sender_wa_id = ? AND status <> ?", tenantID, senderWaID, types.ConversationStatusClosed).
		Order("created_at DESC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *conversationRepo) ListByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]*types.Conversation, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if limit <= 0 {
		limit = 50
	}

	var results []*types.Conversation
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("last_activity_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *conversationRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"status":           status,
			"last_activity_at": time.Now().UTC(),
		}).Error
}

func (cr *conversationRepo) TouchActivity(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, messageAt *time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	updates := map[string]interface{}{
		"last_activity_at": time.Now().UTC(),
	}
	if messageAt != nil {
		updates["last_message_at"] = *messageAt
	}
	return transaction.WithContext(ctx).
		Model(&types.Conversation{}).
		Where("id = ?", conversationID).
		Updates(updates).Error
}
