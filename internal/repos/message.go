package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, message *types.Message) (*types.Message, error)
	ListByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*types.Message, error)
	GetOutgoingByExternalID(ctx context.Context, tx *gorm.DB, externalMessageID string) (*types.Message, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, status string) error
	SetDispatchResult(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, externalMessageID string, status string) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	repoLog := baseLog.With("repo", "MessageRepo")
	return &messageRepo{db: db, log: repoLog}
}

func (mr *messageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.Message) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	if message == nil {
		return nil, errors.New("no message given")
	}
	if err := transaction.WithContext(ctx).Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}

func (mr *messageRepo) ListByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if limit <= 0 {
		limit = 100
	}

	var results []*types.Message
	if err := transaction.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *messageRepo) GetOutgoingByExternalID(ctx context.Context, tx *gorm.DB, externalMessageID string) (*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	var result types.Message
	err := transaction.WithContext(ctx).
		Where("external_message_id = ? AND direction = ?", externalMessageID, types.MessageDirectionOutgoing).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (mr *messageRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("id = ?", messageID).
		Update("status", status).Error
}

func (mr *messageRepo) SetDispatchResult(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, externalMessageID string, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]interface{}{
			"external_message_id": externalMessageID,
			"status":              status,
		}).Error
}
