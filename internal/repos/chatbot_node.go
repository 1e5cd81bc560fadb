package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type ChatbotNodeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, node *types.ChatbotNode) (*types.ChatbotNode, error)
	Update(ctx context.Context, tx *gorm.DB, node *types.ChatbotNode) (*types.ChatbotNode, error)
	GetByID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) (*types.ChatbotNode, error)
	GetByChatbotID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) ([]*types.ChatbotNode, error)
	// GetFirstNode resolves the chain entry point: the chatbot node no other
	// node of the same chatbot points at.
	GetFirstNode(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) (*types.ChatbotNode, error)
}

type chatbotNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatbotNodeRepo(db *gorm.DB, baseLog *logger.Logger) ChatbotNodeRepo {
	repoLog := baseLog.With("repo", "ChatbotNodeRepo")
	return &chatbotNodeRepo{db: db, log: repoLog}
}

func (nr *chatbotNodeRepo) Create(ctx context.Context, tx *gorm.DB, node *types.ChatbotNode) (*types.ChatbotNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	if err := transaction.WithContext(ctx).Create(node).Error; err != nil {
		return nil, err
	}
	return node, nil
}

func (nr *chatbotNodeRepo) Update(ctx context.Context, tx *gorm.DB, node *types.ChatbotNode) (*types.ChatbotNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	if err := transaction.WithContext(ctx).Save(node).Error; err != nil {
		return nil, err
	}
	return node, nil
}

func (nr *chatbotNodeRepo) GetByID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) (*types.ChatbotNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var result types.ChatbotNode
	err := transaction.WithContext(ctx).
		Where("id = ?", nodeID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (nr *chatbotNodeRepo) GetByChatbotID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) ([]*types.ChatbotNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var results []*types.ChatbotNode
	if err := transaction.WithContext(ctx).
		Where("chatbot_id = ?", chatbotID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (nr *chatbotNodeRepo) GetFirstNode(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) (*types.ChatbotNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = nr.db
	}

	var result types.ChatbotNode
	err := transaction.WithContext(ctx).
		Where("chatbot_id = ?", chatbotID).
		Where(`id NOT IN (
			SELECT next_node_id FROM chatbot_node
			WHERE chatbot_id = ? AND next_node_id IS NOT NULL
		)`, chatbotID).
		Order("created_at ASC").
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
