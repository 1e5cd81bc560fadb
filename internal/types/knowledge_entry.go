package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// KnowledgeEntry is one FAQ pair owned by a tenant. Embedding stays nil until
// the indexing worker populates it; retrieval skips unindexed entries.
type KnowledgeEntry struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TenantID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Question   string         `gorm:"column:question;not null" json:"question"`
	Answer     string         `gorm:"column:answer;not null" json:"answer"`
	Embedding  datatypes.JSON `gorm:"type:jsonb;column:embedding" json:"-"`
	IntentType string         `gorm:"column:intent_type;default:'faq'" json:"intent_type"`
	Priority   int            `gorm:"column:priority;not null;default:0" json:"priority"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (KnowledgeEntry) TableName() string { return "knowledge_entry" }

func (ke *KnowledgeEntry) EmbeddingVector() []float32 {
	if ke == nil || len(ke.Embedding) == 0 {
		return nil
	}
	var vec []float32
	if err := json.Unmarshal(ke.Embedding, &vec); err != nil {
		return nil
	}
	return vec
}

func (ke *KnowledgeEntry) SetEmbeddingVector(vec []float32) error {
	if vec == nil {
		ke.Embedding = nil
		return nil
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	ke.Embedding = datatypes.JSON(raw)
	return nil
}
