package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	NodeTypeMessage   = "message"
	NodeTypeQuestion  = "question"
	NodeTypeDelay     = "delay"
	NodeTypeCondition = "condition"
)

// ChatbotNode is one step of a chatbot's flow. NextNodeID forms a
// singly-linked chain; the condition type is reserved for a future branching
// interpreter and is executed as a plain message node today.
type ChatbotNode struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChatbotID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"chatbot_id"`
	Chatbot    *Chatbot       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChatbotID;references:ID" json:"chatbot,omitempty"`
	Type       string         `gorm:"column:type;not null;default:'message'" json:"type"`
	Content    string         `gorm:"column:content;not null" json:"content"`
	Options    datatypes.JSON `gorm:"type:jsonb;column:options" json:"options,omitempty"`
	NextNodeID *uuid.UUID     `gorm:"type:uuid;column:next_node_id;index" json:"next_node_id,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ChatbotNode) TableName() string { return "chatbot_node" }
