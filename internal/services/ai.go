package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/clients/openai"
	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/normalization"
	"github.com/chatwire/chatwire-backend/internal/types"
)

const (
	faqConfidenceThreshold = 0.75

	emptyInputReply = "How can we assist you today?"
	greetingReply   = "Hello! How can we help you today?"
	fallbackReply   = "Please contact our team for accurate assistance."

	intentFAQ      = "faq"
	intentAdvisory = "advisory"

	intentSystemPrompt = "You classify customer support messages. Respond with exactly one word: " +
		"\"faq\" if the message asks about products, services, prices, policies or other factual matters, " +
		"or \"advisory\" if the message asks for a recommendation, comparison or personal guidance."

	advisorySystemPrompt = "You are a helpful, concise customer assistant for a business. " +
		"Answer the customer's question directly and politely. If you are not sure, say so and " +
		"suggest contacting the team. Keep answers under 120 words."
)

var greetings = map[string]bool{
	"hi":             true,
	"hello":          true,
	"hey":            true,
	"good morning":   true,
	"good afternoon": true,
	"good evening":   true,
}

// AIAnswer is what the AI engine resolved for one inbound message.
type AIAnswer struct {
	Text       string
	Source     string
	Confidence *float64
}

// AIService answers messages that no flow handles. It is total: every input,
// including empty text and forced external failures, resolves to some reply
// text. External call errors are logged here and never surface to the router.
type AIService interface {
	Reply(ctx context.Context, tenantID uuid.UUID, message string) AIAnswer
}

type aiService struct {
	db           *gorm.DB
	log          *logger.Logger
	cacheService ResponseCacheService
	retriever    RetrieverService
	openaiClient openai.Client
}

func NewAIService(db *gorm.DB, log *logger.Logger, cacheService ResponseCacheService, retriever RetrieverService, openaiClient openai.Client) AIService {
	serviceLog := log.With("service", "AIService")
	return &aiService{
		db:           db,
		log:          serviceLog,
		cacheService: cacheService,
		retriever:    retriever,
		openaiClient: openaiClient,
	}
}

func (as *aiService) Reply(ctx context.Context, tenantID uuid.UUID, message string) AIAnswer {
	normalized := normalization.ParseInputString(message)

	if normalized == "" {
		return AIAnswer{Text: emptyInputReply, Source: types.MessageSourceSystem}
	}

	if cached, ok := as.cacheService.Lookup(ctx, tenantID, message); ok {
		as.log.Debug("Cache hit", "tenant_id", tenantID)
		return AIAnswer{Text: cached, Source: types.MessageSourceFAQ}
	}

	if greetings[normalized] {
		return AIAnswer{Text: greetingReply, Source: types.MessageSourceSystem}
	}

	intent := as.classifyIntent(ctx, message)

	if intent == intentAdvisory {
		return as.advisoryAnswer(ctx, tenantID, message)
	}
	return as.faqAnswer(ctx, tenantID, message)
}

// classifyIntent defaults to faq on any failure or ambiguous output: the FAQ
// path is the cheaper and safer one.
func (as *aiService) classifyIntent(ctx context.Context, message string) string {
	raw, err := as.openaiClient.GenerateText(ctx, intentSystemPrompt, message, nil)
	if err != nil {
		as.log.Warn("Intent classification failed, defaulting to faq", "error", err)
		return intentFAQ
	}
	label := normalization.ParseInputString(raw)
	switch label {
	case intentAdvisory:
		return intentAdvisory
	case intentFAQ:
		return intentFAQ
	default:
		if strings.Contains(label, intentAdvisory) {
			return intentAdvisory
		}
		return intentFAQ
	}
}

func (as *aiService) faqAnswer(ctx context.Context, tenantID uuid.UUID, message string) AIAnswer {
	candidates := as.retriever.Retrieve(ctx, tenantID, message)
	if len(candidates) > 0 && candidates[0].Score >= faqConfidenceThreshold {
		best := candidates[0]
		as.cacheService.Store(ctx, tenantID, message, best.Entry.Answer)
		score := best.Score
		return AIAnswer{Text: best.Entry.Answer, Source: types.MessageSourceFAQ, Confidence: &score}
	}
	// Fallbacks are never cached; the same question may match after the
	// knowledge base grows.
	if len(candidates) > 0 {
		as.log.Debug("Best knowledge candidate below threshold",
			"tenant_id", tenantID,
			"score", candidates[0].Score,
		)
	}
	return AIAnswer{Text: fallbackReply, Source: types.MessageSourceSystem}
}

func (as *aiService) advisoryAnswer(ctx context.Context, tenantID uuid.UUID, message string) AIAnswer {
	temp := 0.3
	answer, err := as.openaiClient.GenerateText(ctx, advisorySystemPrompt, message, &temp)
	if err != nil {
		as.log.Warn("Advisory completion failed, using fallback", "tenant_id", tenantID, "error", err)
		return AIAnswer{Text: fallbackReply, Source: types.MessageSourceSystem}
	}
	as.cacheService.Store(ctx, tenantID, message, answer)
	return AIAnswer{Text: answer, Source: types.MessageSourceAdvisoryAI}
}
