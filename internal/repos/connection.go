package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

type ConnectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, connection *types.Connection) (*types.Connection, error)
	GetByPhoneNumberID(ctx context.Context, tx *gorm.DB, phoneNumberID string) (*types.Connection, error)
	GetActiveByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Connection, error)
}

type connectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConnectionRepo(db *gorm.DB, baseLog *logger.Logger) ConnectionRepo {
	repoLog := baseLog.With("repo", "ConnectionRepo")
	return &connectionRepo{db: db, log: repoLog}
}

func (cr *connectionRepo) Create(ctx context.Context, tx *gorm.DB, connection *types.Connection) (*types.Connection, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	if err := transaction.WithContext(ctx).Create(connection).Error; err != nil {
		return nil, err
	}
	return connection, nil
}

func (cr *connectionRepo) GetByPhoneNumberID(ctx context.Context, tx *gorm.DB, phoneNumberID string) (*types.Connection, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Connection
	err := transaction.WithContext(ctx).
		Where("phone_number_id = ? AND is_active = ?", phoneNumberID, true).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *connectionRepo) GetActiveByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Connection, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}

	var result types.Connection
	err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
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
