package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/normalization"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

// RouteResult is a reply the router produced for one inbound message, with
// the outgoing message row it was recorded under.
type RouteResult struct {
	Text    string
	Message *types.Message
}

// RouterService decides how one inbound message is handled: start a flow,
// continue a flow, hand to the AI engine, or stay silent because a human has
// taken the conversation over.
type RouterService interface {
	Route(ctx context.Context, tenantID uuid.UUID, senderWaID string, text string) (*RouteResult, error)
}

type routerService struct {
	db          *gorm.DB
	log         *logger.Logger
	convRepo    repos.ConversationRepo
	stateRepo   repos.ConversationStateRepo
	msgRepo     repos.MessageRepo
	chatbotRepo repos.ChatbotRepo
	triggerRepo repos.ChatbotTriggerRepo
	flowService FlowService
	aiService   AIService
	locks       *ConversationLocks
}

func NewRouterService(
	db *gorm.DB,
	log *logger.Logger,
	convRepo repos.ConversationRepo,
	stateRepo repos.ConversationStateRepo,
	msgRepo repos.MessageRepo,
	chatbotRepo repos.ChatbotRepo,
	triggerRepo repos.ChatbotTriggerRepo,
	flowService FlowService,
	aiService AIService,
) RouterService {
	serviceLog := log.With("service", "RouterService")
	return &routerService{
		db:          db,
		log:         serviceLog,
		convRepo:    convRepo,
		stateRepo:   stateRepo,
		msgRepo:     msgRepo,
		chatbotRepo: chatbotRepo,
		triggerRepo: triggerRepo,
		flowService: flowService,
		aiService:   aiService,
		locks:       NewConversationLocks(),
	}
}

func (rs *routerService) Route(ctx context.Context, tenantID uuid.UUID, senderWaID string, text string) (*RouteResult, error) {
	// Serialize per (tenant, sender): conversation state transitions are
	// read-modify-write and concurrent deliveries for the same sender must
	// not interleave.
	unlock := rs.locks.Lock(tenantID.String() + "|" + senderWaID)
	defer unlock()

	conversation, err := rs.convRepo.GetOpenByTenantAndSender(ctx, nil, tenantID, senderWaID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	if conversation == nil {
		return rs.startConversation(ctx, tenantID, senderWaID, text)
	}

	if err := rs.appendIncoming(ctx, conversation, text); err != nil {
		return nil, err
	}

	if conversation.Status == types.ConversationStatusHuman {
		rs.log.Debug("Human has taken over, bot stays silent", "conversation_id", conversation.ID)
		return nil, nil
	}

	state, err := rs.stateRepo.GetByConversationID(ctx, nil, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("load conversation state: %w", err)
	}
	if state != nil && state.CurrentNodeID != nil {
		reply, err := rs.flowService.Continue(ctx, conversation, text)
		if err != nil {
			return nil, err
		}
		if reply == nil {
			return nil, nil
		}
		return &RouteResult{Text: reply.Text, Message: reply.Message}, nil
	}

	return rs.aiReply(ctx, conversation, text)
}

func (rs *routerService) startConversation(ctx context.Context, tenantID uuid.UUID, senderWaID string, text string) (*RouteResult, error) {
	chatbot, err := rs.chatbotRepo.GetActiveByTenantID(ctx, nil, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load active chatbot: %w", err)
	}
	if chatbot == nil {
		rs.log.Debug("No active chatbot for tenant, dropping message", "tenant_id", tenantID)
		return nil, nil
	}

	triggers, err := rs.triggerRepo.GetByChatbotID(ctx, nil, chatbot.ID)
	if err != nil {
		return nil, fmt.Errorf("load chatbot triggers: %w", err)
	}
	if !triggerMatches(triggers, text) {
		rs.log.Debug("No trigger matched, conversation not started", "chatbot_id", chatbot.ID)
		return nil, nil
	}

	conversation := &types.Conversation{
		ID:             uuid.New(),
		TenantID:       tenantID,
		SenderWaID:     senderWaID,
		ChatbotID:      &chatbot.ID,
		Status:         types.ConversationStatusBot,
		LastActivityAt: time.Now().UTC(),
	}
	if _, err := rs.convRepo.Create(ctx, nil, conversation); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	if err := rs.appendIncoming(ctx, conversation, text); err != nil {
		return nil, err
	}

	reply, err := rs.flowService.Start(ctx, conversation, chatbot)
	if err != nil {
		return nil, err
	}
	if reply == nil {
		return nil, nil
	}
	return &RouteResult{Text: reply.Text, Message: reply.Message}, nil
}

// triggerMatches applies the trigger policy: a keyword trigger matches when
// the inbound text contains its keyword case-insensitively; a welcome trigger
// is the fallback when no keyword matched.
func triggerMatches(triggers []*types.ChatbotTrigger, text string) bool {
	normalized := normalization.ParseInputString(text)
	hasWelcome := false
	for _, trigger := range triggers {
		switch trigger.Type {
		case types.TriggerTypeKeyword:
			keyword := normalization.ParseInputString(trigger.Keyword)
			if keyword != "" && strings.Contains(normalized, keyword) {
				return true
			}
		case types.TriggerTypeWelcome:
			hasWelcome = true
		}
	}
	return hasWelcome
}

func (rs *routerService) appendIncoming(ctx context.Context, conversation *types.Conversation, text string) error {
	incoming := &types.Message{
		ConversationID: conversation.ID,
		Direction:      types.MessageDirectionIncoming,
		Type:           "text",
		Content:        text,
		Status:         types.MessageStatusDelivered,
	}
	if _, err := rs.msgRepo.Create(ctx, nil, incoming); err != nil {
		return fmt.Errorf("append incoming message: %w", err)
	}
	now := time.Now().UTC()
	if err := rs.convRepo.TouchActivity(ctx, nil, conversation.ID, &now); err != nil {
		rs.log.Warn("Failed to touch conversation activity", "conversation_id", conversation.ID, "error", err)
	}
	return nil
}

func (rs *routerService) aiReply(ctx context.Context, conversation *types.Conversation, text string) (*RouteResult, error) {
	answer := rs.aiService.Reply(ctx, conversation.TenantID, text)

	outgoing := &types.Message{
		ConversationID: conversation.ID,
		Direction:      types.MessageDirectionOutgoing,
		Type:           "text",
		Content:        answer.Text,
		Status:         types.MessageStatusPending,
		Source:         answer.Source,
		Confidence:     answer.Confidence,
	}
	created, err := rs.msgRepo.Create(ctx, nil, outgoing)
	if err != nil {
		return nil, fmt.Errorf("append ai message: %w", err)
	}
	return &RouteResult{Text: answer.Text, Message: created}, nil
}
