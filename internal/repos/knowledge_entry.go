package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type KnowledgeEntryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error)
	Update(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) error
	GetByID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) (*types.KnowledgeEntry, error)
	ListByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error)
	// ListActiveIndexed returns active entries that already carry an embedding,
	// in stable priority order for the retriever.
	ListActiveIndexed(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error)
	// ListUnindexed returns active entries still waiting for an embedding,
	// across tenants, oldest first.
	ListUnindexed(ctx context.Context, tx *gorm.DB, limit int) ([]*types.KnowledgeEntry, error)
	SaveEmbedding(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, embedding datatypes.JSON) error
}

type knowledgeEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKnowledgeEntryRepo(db *gorm.DB, baseLog *logger.Logger) KnowledgeEntryRepo {
	repoLog := baseLog.With("repo", "KnowledgeEntryRepo")
	return &knowledgeEntryRepo{db: db, log: repoLog}
}

func (kr *knowledgeEntryRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = kr.db
	}

	if entry == nil {
		return nil, errors.New("no knowledge entry given")
	}
	if err := transaction.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (kr *knowledgeEntryRepo) Update(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) error {
	transaction := tx
	if transaction == nil {
		transaction = kr.db
	}

	if entry == nil {
		return errors.New("no knowledge entry given")
	}
	return transaction.WithContext(ctx).
		Model(&types.KnowledgeEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"question":    entry.Question,
			"answer":      entry.Answer,
			"embedding":   entry.Embedding,
			"intent_type": entry.IntentType,
			"priority":    entry.Priority,
			"is_active":   entry.IsActive,
		}).Error
}

func (kr *knowledgeEntryRepo) GetByID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) (*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = kr.db
	}

	var result types.KnowledgeEntry
	err := transaction.WithContext(ctx).
		Where("id = ?", entryID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (kr *knowledgeEntryRepo) ListByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = kr.db
	}

	var results []*types.KnowledgeEntry
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (kr *knowledgeEntryRepo) ListActiveIndexed(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = kr.db
	}

	var results []*types.KnowledgeEntry
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND embedding IS NOT NULL", tenantID, true).
		Order("priority DESC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (kr *knowledgeEntryRepo) ListUnindexed(ctx context.Context, tx *gorm.DB, limit int) ([]*types.KnowledgeEntry, error) {
	transaction := tx
	if transaction == nil {
		transaction = kr.db
	}
	if limit <= 0 {
		limit = 50
	}

	var results []*types.KnowledgeEntry
	if err := transaction.WithContext(ctx).
		Where("is_active = ? AND embedding IS NULL", true).
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (kr *knowledgeEntryRepo) SaveEmbedding(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, embedding datatypes.JSON) error {
	transaction := tx
	if transaction == nil {
		transaction = kr.db
	}

	return transaction.WithContext(ctx).
		Model(&types.KnowledgeEntry{}).
		Where("id = ?", entryID).
		Update("embedding", embedding).Error
}
