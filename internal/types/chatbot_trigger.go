package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	TriggerTypeWelcome = "welcome"
	TriggerTypeKeyword = "keyword"
)

// ChatbotTrigger decides whether a new conversation should start a flow.
// Keyword is required iff Type is keyword.
type ChatbotTrigger struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ChatbotID uuid.UUID `gorm:"type:uuid;not null;index" json:"chatbot_id"`
	Chatbot   *Chatbot  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChatbotID;references:ID" json:"chatbot,omitempty"`
	Type      string    `gorm:"column:type;not null" json:"type"`
	Keyword   string    `gorm:"column:keyword" json:"keyword,omitempty"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ChatbotTrigger) TableName() string { return "chatbot_trigger" }
