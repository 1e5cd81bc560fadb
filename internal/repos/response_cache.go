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

type ResponseCacheRepo interface {
	Get(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, messageHash string) (*types.ResponseCache, error)
	Upsert(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, messageHash string, response string) error
}

type responseCacheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseCacheRepo(db *gorm.DB, baseLog *logger.Logger) ResponseCacheRepo {
	repoLog := baseLog.With("repo", "ResponseCacheRepo")
	return &responseCacheRepo{db: db, log: repoLog}
}

func (rr *responseCacheRepo) Get(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, messageHash string) (*types.ResponseCache, error) {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	var result types.ResponseCache
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND message_hash = ?", tenantID, messageHash).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (rr *responseCacheRepo) Upsert(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, messageHash string, response string) error {
	transaction := tx
	if transaction == nil {
		transaction = rr.db
	}

	now := time.Now().UTC()
	entry := types.ResponseCache{
		ID:          uuid.New(),
		TenantID:    tenantID,
		MessageHash: messageHash,
		Response:    response,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "message_hash"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"response":   response,
				"updated_at": now,
			}),
		}).
		Create(&entry).Error
}
