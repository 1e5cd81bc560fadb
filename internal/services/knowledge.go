package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

// KnowledgeService is the admin-facing surface over a tenant's FAQ entries.
// Content edits clear the stored embedding so the indexing worker picks the
// entry up again.
type KnowledgeService interface {
	Create(ctx context.Context, tenantID uuid.UUID, question, answer, intentType string, priority int) (*types.KnowledgeEntry, error)
	Update(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID, question, answer, intentType string, priority int, isActive bool) (*types.KnowledgeEntry, error)
	Get(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID) (*types.KnowledgeEntry, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error)
	Deactivate(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID) error
}

type knowledgeService struct {
	db            *gorm.DB
	log           *logger.Logger
	knowledgeRepo repos.KnowledgeEntryRepo
}

func NewKnowledgeService(db *gorm.DB, log *logger.Logger, knowledgeRepo repos.KnowledgeEntryRepo) KnowledgeService {
	serviceLog := log.With("service", "KnowledgeService")
	return &knowledgeService{db: db, log: serviceLog, knowledgeRepo: knowledgeRepo}
}

func (ks *knowledgeService) Create(ctx context.Context, tenantID uuid.UUID, question, answer, intentType string, priority int) (*types.KnowledgeEntry, error) {
	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("question and answer are required")
	}
	if intentType == "" {
		intentType = "faq"
	}

	entry := &types.KnowledgeEntry{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Question:   question,
		Answer:     answer,
		IntentType: intentType,
		Priority:   priority,
		IsActive:   true,
	}
	created, err := ks.knowledgeRepo.Create(ctx, nil, entry)
	if err != nil {
		return nil, fmt.Errorf("create knowledge entry: %w", err)
	}
	return created, nil
}

func (ks *knowledgeService) Update(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID, question, answer, intentType string, priority int, isActive bool) (*types.KnowledgeEntry, error) {
	entry, err := ks.getOwned(ctx, tenantID, entryID)
	if err != nil {
		return nil, err
	}

	question = strings.TrimSpace(question)
	answer = strings.TrimSpace(answer)
	if question == "" || answer == "" {
		return nil, fmt.Errorf("question and answer are required")
	}

	contentChanged := entry.Question != question || entry.Answer != answer
	entry.Question = question
	entry.Answer = answer
	entry.IntentType = intentType
	entry.Priority = priority
	entry.IsActive = isActive
	if contentChanged {
		entry.Embedding = nil
	}

	if err := ks.knowledgeRepo.Update(ctx, nil, entry); err != nil {
		return nil, fmt.Errorf("update knowledge entry: %w", err)
	}
	return entry, nil
}

func (ks *knowledgeService) Get(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID) (*types.KnowledgeEntry, error) {
	return ks.getOwned(ctx, tenantID, entryID)
}

func (ks *knowledgeService) List(ctx context.Context, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error) {
	entries, err := ks.knowledgeRepo.ListByTenantID(ctx, nil, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list knowledge entries: %w", err)
	}
	return entries, nil
}

func (ks *knowledgeService) Deactivate(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID) error {
	entry, err := ks.getOwned(ctx, tenantID, entryID)
	if err != nil {
		return err
	}
	entry.IsActive = false
	if err := ks.knowledgeRepo.Update(ctx, nil, entry); err != nil {
		return fmt.Errorf("deactivate knowledge entry: %w", err)
	}
	return nil
}

func (ks *knowledgeService) getOwned(ctx context.Context, tenantID uuid.UUID, entryID uuid.UUID) (*types.KnowledgeEntry, error) {
	entry, err := ks.knowledgeRepo.GetByID(ctx, nil, entryID)
	if err != nil {
		return nil, fmt.Errorf("load knowledge entry: %w", err)
	}
	if entry == nil || entry.TenantID != tenantID {
		return nil, fmt.Errorf("knowledge entry not found")
	}
	return entry, nil
}
