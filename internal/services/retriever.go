package services

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/clients/openai"
	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

const retrieverTopK = 5

type KnowledgeCandidate struct {
	Entry *types.KnowledgeEntry
	Score float64
}

// RetrieverService ranks a tenant's indexed knowledge entries against a query
// by cosine similarity.
type RetrieverService interface {
	// Retrieve returns up to 5 candidates sorted non-increasing by score. An
	// embedding failure yields an empty result, not an error; the caller
	// falls back.
	Retrieve(ctx context.Context, tenantID uuid.UUID, message string) []KnowledgeCandidate
}

type retrieverService struct {
	db            *gorm.DB
	log           *logger.Logger
	knowledgeRepo repos.KnowledgeEntryRepo
	openaiClient  openai.Client
}

func NewRetrieverService(db *gorm.DB, log *logger.Logger, knowledgeRepo repos.KnowledgeEntryRepo, openaiClient openai.Client) RetrieverService {
	serviceLog := log.With("service", "RetrieverService")
	return &retrieverService{
		db:            db,
		log:           serviceLog,
		knowledgeRepo: knowledgeRepo,
		openaiClient:  openaiClient,
	}
}

func (rs *retrieverService) Retrieve(ctx context.Context, tenantID uuid.UUID, message string) []KnowledgeCandidate {
	query := rs.openaiClient.Embed(ctx, message)
	if len(query) == 0 {
		rs.log.Warn("No query embedding produced, returning no candidates", "tenant_id", tenantID)
		return nil
	}

	entries, err := rs.knowledgeRepo.ListActiveIndexed(ctx, nil, tenantID)
	if err != nil {
		rs.log.Error("Failed to load knowledge entries", "tenant_id", tenantID, "error", err)
		return nil
	}

	candidates := make([]KnowledgeCandidate, 0, len(entries))
	for _, entry := range entries {
		vec := entry.EmbeddingVector()
		if len(vec) == 0 {
			continue
		}
		candidates = append(candidates, KnowledgeCandidate{
			Entry: entry,
			Score: Cosine(query, vec),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > retrieverTopK {
		candidates = candidates[:retrieverTopK]
	}
	return candidates
}

// Cosine is the normalized dot product of two embedding vectors. Mismatched
// lengths are tolerated by treating missing components as zero, and the
// epsilon keeps a zero vector from dividing by zero.
func Cosine(a, b []float32) float64 {
	const epsilon = 1e-10

	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}

	var dot, na, nb float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = float64(a[i])
		}
		if i < len(b) {
			y = float64(b[i])
		}
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + epsilon)
}
