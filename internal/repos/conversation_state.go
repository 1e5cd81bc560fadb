package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type ConversationStateRepo interface {
	GetByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.ConversationState, error)
	// SetCurrentNode replaces the conversation's state pointer. A nil nodeID
	// records flow exhaustion without deleting the row.
	SetCurrentNode(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, nodeID *uuid.UUID) error
	DeleteByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error
}

type conversationStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationStateRepo(db *gorm.DB, baseLog *logger.Logger) ConversationStateRepo {
	repoLog := baseLog.With("repo", "ConversationStateRepo")
	return &conversationStateRepo{db: db, log: repoLog}
}

func (sr *conversationStateRepo) GetByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.ConversationState, error) {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	var result types.ConversationState
	err := transaction.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (sr *conversationStateRepo) SetCurrentNode(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, nodeID *uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	now := time.Now().UTC()
	state := types.ConversationState{
		ID:                uuid.New(),
		ConversationID:    conversationID,
		CurrentNodeID:     nodeID,
		LastInteractionAt: now,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"current_node_id":     nodeID,
				"last_interaction_at": now,
				"updated_at":          now,
			}),
		}).
		Create(&state).Error
}

func (sr *conversationStateRepo) DeleteByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = sr.db
	}

	return transaction.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&types.ConversationState{}).Error
}
