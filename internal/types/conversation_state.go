package types

import (
	"time"

	"github.com/google/uuid"
)

// ConversationState is the single current pointer of a conversation into its
// chatbot's node chain. It is replaced as the flow advances; absence means the
// flow engine has not started for that conversation.
type ConversationState struct {
	ID                uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"conversation_id"`
	Conversation      *Conversation `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	CurrentNodeID     *uuid.UUID    `gorm:"type:uuid;column:current_node_id" json:"current_node_id,omitempty"`
	LastInteractionAt time.Time     `gorm:"column:last_interaction_at;not null;default:now()" json:"last_interaction_at"`
	CreatedAt         time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (ConversationState) TableName() string { return "conversation_state" }
