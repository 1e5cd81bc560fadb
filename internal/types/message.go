package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageDirectionIncoming = "incoming"
	MessageDirectionOutgoing = "outgoing"

	MessageStatusPending   = "pending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusFailed    = "failed"
	MessageStatusRead      = "read"

	MessageSourceFAQ        = "faq"
	MessageSourceAdvisoryAI = "advisory_ai"
	MessageSourceFlow       = "flow"
	MessageSourceSystem     = "system"
)

// Message is an append-only log row. Only the status of outgoing messages is
// ever mutated, driven by provider delivery receipts correlated through
// ExternalMessageID.
type Message struct {
	ID                uuid.UUID     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ConversationID    uuid.UUID     `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Conversation      *Conversation `gorm:"constraint:OnDelete:CASCADE;foreignKey:ConversationID;references:ID" json:"conversation,omitempty"`
	Direction         string        `gorm:"column:direction;not null" json:"direction"`
	Type              string        `gorm:"column:type;not null;default:'text'" json:"type"`
	Content           string        `gorm:"column:content;not null" json:"content"`
	Status            string        `gorm:"column:status;not null;default:'pending'" json:"status"`
	ExternalMessageID string        `gorm:"column:external_message_id;index" json:"external_message_id,omitempty"`
	Confidence        *float64      `gorm:"column:confidence" json:"confidence,omitempty"`
	Source            string        `gorm:"column:source" json:"source,omitempty"`
	CreatedAt         time.Time     `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time     `gorm:"not null;default:now()" json:"updated_at"`
}

func (Message) TableName() string { return "message" }

// messageStatusRank orders delivery receipt transitions so a late "sent"
// receipt can never roll back a "read" row. Failed is terminal.
var messageStatusRank = map[string]int{
	MessageStatusPending:   0,
	MessageStatusSent:      1,
	MessageStatusDelivered: 2,
	MessageStatusRead:      3,
	MessageStatusFailed:    4,
}

func MessageStatusAdvances(from, to string) bool {
	fr, ok := messageStatusRank[from]
	if !ok {
		return false
	}
	tr, ok := messageStatusRank[to]
	if !ok {
		return false
	}
	if from == MessageStatusFailed {
		return false
	}
	return tr > fr
}
