package types

import (
	"time"

	"github.com/google/uuid"
)

// Connection is a tenant's stored credential for the messaging provider.
// The core reads connections to resolve inbound traffic and to send replies;
// it never mutates them. AccessToken holds AES-GCM ciphertext, base64 encoded.
type Connection struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PhoneNumberID string     `gorm:"column:phone_number_id;not null;uniqueIndex" json:"phone_number_id"`
	AccessToken   string     `gorm:"column:access_token;not null" json:"-"`
	ExpiresAt     *time.Time `gorm:"column:expires_at" json:"expires_at,omitempty"`
	IsActive      bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (Connection) TableName() string { return "connection" }
