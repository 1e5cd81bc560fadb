package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/clients/openai"
	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

const (
	indexerInterval    = 30 * time.Second
	indexerBatchSize   = 50
	indexerParallelism = 4
)

// IndexerService backfills embeddings for knowledge entries whose content
// changed or was just created. It runs off the request path; retrieval simply
// skips entries the worker has not reached yet.
type IndexerService interface {
	StartWorker(ctx context.Context)
	// RunOnce indexes one batch and reports how many entries got a vector.
	RunOnce(ctx context.Context) int
}

type indexerService struct {
	db            *gorm.DB
	log           *logger.Logger
	knowledgeRepo repos.KnowledgeEntryRepo
	openaiClient  openai.Client
}

func NewIndexerService(db *gorm.DB, log *logger.Logger, knowledgeRepo repos.KnowledgeEntryRepo, openaiClient openai.Client) IndexerService {
	serviceLog := log.With("service", "IndexerService")
	return &indexerService{
		db:            db,
		log:           serviceLog,
		knowledgeRepo: knowledgeRepo,
		openaiClient:  openaiClient,
	}
}

func (is *indexerService) StartWorker(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(indexerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				is.log.Info("Indexer worker stopping")
				return
			case <-ticker.C:
				is.RunOnce(ctx)
			}
		}
	}()
}

func (is *indexerService) RunOnce(ctx context.Context) int {
	entries, err := is.knowledgeRepo.ListUnindexed(ctx, nil, indexerBatchSize)
	if err != nil {
		is.log.Error("Failed to list unindexed entries", "error", err)
		return 0
	}
	if len(entries) == 0 {
		return 0
	}

	indexed := make([]bool, len(entries))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(indexerParallelism)

	for i, entry := range entries {
		i, entry := i, entry
		group.Go(func() error {
			ok := is.indexEntry(groupCtx, entry)
			indexed[i] = ok
			return nil
		})
	}
	_ = group.Wait()

	count := 0
	for _, ok := range indexed {
		if ok {
			count++
		}
	}
	if count > 0 {
		is.log.Info("Indexed knowledge entries", "count", count, "batch", len(entries))
	}
	return count
}

func (is *indexerService) indexEntry(ctx context.Context, entry *types.KnowledgeEntry) bool {
	vec := is.openaiClient.Embed(ctx, entry.Question)
	if len(vec) == 0 {
		// No vector is a normal embedding outcome; the next pass retries.
		is.log.Warn("No embedding produced for entry", "entry_id", entry.ID)
		return false
	}
	if err := entry.SetEmbeddingVector(vec); err != nil {
		is.log.Error("Failed to encode embedding", "entry_id", entry.ID, "error", err)
		return false
	}
	if err := is.knowledgeRepo.SaveEmbedding(ctx, nil, entry.ID, entry.Embedding); err != nil {
		is.log.Error("Failed to save embedding", "entry_id", entry.ID, "error", err)
		return false
	}
	return true
}
