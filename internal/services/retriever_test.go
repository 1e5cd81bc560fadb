package services

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/types"
)

func TestCosine_IdenticalVectorsScoreOne(t *testing.T) {
	v := []float32{0.2, 0.5, 0.8}
	got := Cosine(v, v)
	if math.Abs(got-1.0) > 1e-6 {
		t.Fatalf("expected ~1.0 got %v", got)
	}
}

func TestCosine_IsSymmetric(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	if Cosine(a, b) != Cosine(b, a) {
		t.Fatalf("cosine not symmetric: %v vs %v", Cosine(a, b), Cosine(b, a))
	}
}

func TestCosine_ScaleInvariant(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{2, 4, 6}
	got := Cosine(a, b)
	if math.Abs(got-1.0) > 1e-6 {
		t.Fatalf("expected ~1.0 for scaled vector got %v", got)
	}
}

func TestCosine_ZeroVectorScoresZero(t *testing.T) {
	got := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	if got != 0 {
		t.Fatalf("expected 0 got %v", got)
	}
}

func TestCosine_MismatchedLengthsPadWithZeros(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0, 0, 0}
	got := Cosine(a, b)
	if math.Abs(got-1.0) > 1e-6 {
		t.Fatalf("expected ~1.0 got %v", got)
	}
}

func TestCosine_EmptyInputs(t *testing.T) {
	if got := Cosine(nil, nil); got != 0 {
		t.Fatalf("expected 0 for empty vectors got %v", got)
	}
	if got := Cosine(nil, []float32{1}); got != 0 {
		t.Fatalf("expected 0 for one empty vector got %v", got)
	}
}

func entryWithVector(t *testing.T, tenantID uuid.UUID, answer string, vec []float32) *types.KnowledgeEntry {
	t.Helper()
	entry := &types.KnowledgeEntry{
		ID:       uuid.New(),
		TenantID: tenantID,
		Question: "q",
		Answer:   answer,
		IsActive: true,
	}
	if err := entry.SetEmbeddingVector(vec); err != nil {
		t.Fatalf("set vector: %v", err)
	}
	return entry
}

func TestRetrieve_ReturnsTopFiveSortedByScore(t *testing.T) {
	tenantID := uuid.New()
	entries := []*types.KnowledgeEntry{
		entryWithVector(t, tenantID, "a", []float32{1, 0, 0}),
		entryWithVector(t, tenantID, "b", []float32{0.9, 0.1, 0}),
		entryWithVector(t, tenantID, "c", []float32{0.5, 0.5, 0}),
		entryWithVector(t, tenantID, "d", []float32{0, 1, 0}),
		entryWithVector(t, tenantID, "e", []float32{0, 0, 1}),
		entryWithVector(t, tenantID, "f", []float32{0.7, 0.3, 0}),
	}

	svc := NewRetrieverService(nil, logger.NewNop(), newFakeKnowledgeRepo(entries...), &fakeOpenAI{
		embedFn: func(string) []float32 { return []float32{1, 0, 0} },
	})

	got := svc.Retrieve(context.Background(), tenantID, "anything")
	if len(got) != 5 {
		t.Fatalf("expected 5 candidates got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("candidates not sorted at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
	if got[0].Entry.Answer != "a" {
		t.Fatalf("expected best match 'a' got %q", got[0].Entry.Answer)
	}
}

func TestRetrieve_NoEmbeddingMeansNoCandidates(t *testing.T) {
	tenantID := uuid.New()
	repo := newFakeKnowledgeRepo(entryWithVector(t, tenantID, "a", []float32{1, 0}))

	svc := NewRetrieverService(nil, logger.NewNop(), repo, &fakeOpenAI{})

	if got := svc.Retrieve(context.Background(), tenantID, "anything"); len(got) != 0 {
		t.Fatalf("expected no candidates got %d", len(got))
	}
}

func TestRetrieve_SkipsUnindexedEntries(t *testing.T) {
	tenantID := uuid.New()
	indexed := entryWithVector(t, tenantID, "indexed", []float32{1, 0})
	unindexed := &types.KnowledgeEntry{ID: uuid.New(), TenantID: tenantID, Question: "q", Answer: "raw", IsActive: true}

	svc := NewRetrieverService(nil, logger.NewNop(), newFakeKnowledgeRepo(indexed, unindexed), &fakeOpenAI{
		embedFn: func(string) []float32 { return []float32{1, 0} },
	})

	got := svc.Retrieve(context.Background(), tenantID, "anything")
	if len(got) != 1 || got[0].Entry.Answer != "indexed" {
		t.Fatalf("expected only the indexed entry, got %d candidates", len(got))
	}
}
