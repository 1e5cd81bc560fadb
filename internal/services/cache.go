package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/normalization"
	"github.com/chatwire/chatwire-backend/internal/repos"
)

// ResponseCacheService memoizes produced answers by tenant and normalized
// message. It is upsert-only with no expiry: identical questions are answered
// from the table forever unless the entry is overwritten.
type ResponseCacheService interface {
	Lookup(ctx context.Context, tenantID uuid.UUID, message string) (string, bool)
	Store(ctx context.Context, tenantID uuid.UUID, message string, answer string)
}

type responseCacheService struct {
	db        *gorm.DB
	log       *logger.Logger
	cacheRepo repos.ResponseCacheRepo
}

func NewResponseCacheService(db *gorm.DB, log *logger.Logger, cacheRepo repos.ResponseCacheRepo) ResponseCacheService {
	serviceLog := log.With("service", "ResponseCacheService")
	return &responseCacheService{db: db, log: serviceLog, cacheRepo: cacheRepo}
}

// HashMessage is the cache key derivation: sha256 over the tenant id and the
// lowercased, trimmed message.
func HashMessage(tenantID uuid.UUID, message string) string {
	normalized := normalization.ParseInputString(message)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", tenantID, normalized)))
	return hex.EncodeToString(sum[:])
}

func (cs *responseCacheService) Lookup(ctx context.Context, tenantID uuid.UUID, message string) (string, bool) {
	hash := HashMessage(tenantID, message)
	entry, err := cs.cacheRepo.Get(ctx, nil, tenantID, hash)
	if err != nil {
		cs.log.Warn("Cache lookup failed", "tenant_id", tenantID, "error", err)
		return "", false
	}
	if entry == nil {
		return "", false
	}
	return entry.Response, true
}

func (cs *responseCacheService) Store(ctx context.Context, tenantID uuid.UUID, message string, answer string) {
	hash := HashMessage(tenantID, message)
	if err := cs.cacheRepo.Upsert(ctx, nil, tenantID, hash, answer); err != nil {
		cs.log.Warn("Cache store failed", "tenant_id", tenantID, "error", err)
	}
}
