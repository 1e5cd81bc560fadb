package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ConversationStatusBot       = "bot"
	ConversationStatusHuman     = "human"
	ConversationStatusEscalated = "escalated"
	ConversationStatusClosed    = "closed"
)

// Conversation binds one external sender to one tenant. At most one open
// conversation exists per (tenant, sender) pair; the router creates it on the
// first inbound message and the core never hard-deletes it.
type Conversation struct {
	ID             uuid.UUID         `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID       uuid.UUID         `gorm:"type:uuid;not null;index:idx_conversation_tenant_sender,priority:1" json:"tenant_id"`
	SenderWaID     string            `gorm:"column:sender_wa_id;not null;index:idx_conversation_tenant_sender,priority:2" json:"sender_wa_id"`
	ChatbotID      *uuid.UUID        `gorm:"type:uuid;column:chatbot_id;index" json:"chatbot_id,omitempty"`
	Chatbot        *Chatbot          `gorm:"foreignKey:ChatbotID;references:ID" json:"chatbot,omitempty"`
	Status         string            `gorm:"column:status;not null;default:'bot';index" json:"status"`
	LastActivityAt time.Time         `gorm:"column:last_activity_at;not null;default:now()" json:"last_activity_at"`
	LastMessageAt  *time.Time        `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time         `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) IsOpen() bool {
	return c != nil && c.Status != ConversationStatusClosed
}
