package types

import (
	"time"

	"github.com/google/uuid"
)

// ResponseCache memoizes a produced answer by tenant and message hash. The
// table has no TTL or eviction; entries live until overwritten.
type ResponseCache struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index:idx_response_cache_key,unique,priority:1" json:"tenant_id"`
	MessageHash string    `gorm:"column:message_hash;not null;index:idx_response_cache_key,unique,priority:2" json:"message_hash"`
	Response    string    `gorm:"column:response;not null" json:"response"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ResponseCache) TableName() string { return "response_cache" }
