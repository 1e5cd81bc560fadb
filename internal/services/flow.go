package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/logger"
	"github.com/chatwire/chatwire-backend/internal/repos"
	"github.com/chatwire/chatwire-backend/internal/types"
)

// FlowReply is one produced flow step: the reply text to dispatch and the
// outgoing message row it was recorded under. A nil FlowReply means the flow
// finished without producing a reply.
type FlowReply struct {
	Text    string
	Message *types.Message
}

// FlowService walks a chatbot's node chain, advancing one node per inbound
// message. Side effect ordering is fixed: outgoing message append, then state
// write, then the caller dispatches. A dispatch failure therefore never
// leaves the state machine un-advanced.
type FlowService interface {
	Start(ctx context.Context, conversation *types.Conversation, chatbot *types.Chatbot) (*FlowReply, error)
	Continue(ctx context.Context, conversation *types.Conversation, userInput string) (*FlowReply, error)
}

type flowService struct {
	db        *gorm.DB
	log       *logger.Logger
	nodeRepo  repos.ChatbotNodeRepo
	stateRepo repos.ConversationStateRepo
	convRepo  repos.ConversationRepo
	msgRepo   repos.MessageRepo
}

func NewFlowService(
	db *gorm.DB,
	log *logger.Logger,
	nodeRepo repos.ChatbotNodeRepo,
	stateRepo repos.ConversationStateRepo,
	convRepo repos.ConversationRepo,
	msgRepo repos.MessageRepo,
) FlowService {
	serviceLog := log.With("service", "FlowService")
	return &flowService{
		db:        db,
		log:       serviceLog,
		nodeRepo:  nodeRepo,
		stateRepo: stateRepo,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
	}
}

func (fs *flowService) Start(ctx context.Context, conversation *types.Conversation, chatbot *types.Chatbot) (*FlowReply, error) {
	if conversation == nil || chatbot == nil {
		return nil, fmt.Errorf("conversation and chatbot required")
	}

	first, err := fs.nodeRepo.GetFirstNode(ctx, nil, chatbot.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve first node: %w", err)
	}
	if first == nil {
		fs.log.Warn("Chatbot has no first node, flow not started",
			"chatbot_id", chatbot.ID,
			"conversation_id", conversation.ID,
		)
		return nil, nil
	}
	return fs.executeNode(ctx, conversation, first)
}

func (fs *flowService) Continue(ctx context.Context, conversation *types.Conversation, userInput string) (*FlowReply, error) {
	if conversation == nil {
		return nil, fmt.Errorf("conversation required")
	}

	state, err := fs.stateRepo.GetByConversationID(ctx, nil, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("load conversation state: %w", err)
	}
	if state == nil || state.CurrentNodeID == nil {
		return nil, nil
	}

	current, err := fs.nodeRepo.GetByID(ctx, nil, *state.CurrentNodeID)
	if err != nil {
		return nil, fmt.Errorf("load current node: %w", err)
	}
	if current == nil {
		fs.log.Warn("Conversation state points at missing node, closing flow",
			"conversation_id", conversation.ID,
			"node_id", *state.CurrentNodeID,
		)
		return fs.executeNode(ctx, conversation, nil)
	}

	// User input does not select among branches: the chain has a single
	// outgoing edge per node. Condition nodes are executed as plain messages
	// until a branching interpreter exists.
	var next *types.ChatbotNode
	if current.NextNodeID != nil {
		next, err = fs.nodeRepo.GetByID(ctx, nil, *current.NextNodeID)
		if err != nil {
			return nil, fmt.Errorf("load next node: %w", err)
		}
	}
	return fs.executeNode(ctx, conversation, next)
}

func (fs *flowService) executeNode(ctx context.Context, conversation *types.Conversation, node *types.ChatbotNode) (*FlowReply, error) {
	if node == nil {
		if err := fs.convRepo.UpdateStatus(ctx, nil, conversation.ID, types.ConversationStatusClosed); err != nil {
			return nil, fmt.Errorf("close conversation: %w", err)
		}
		if err := fs.stateRepo.SetCurrentNode(ctx, nil, conversation.ID, nil); err != nil {
			return nil, fmt.Errorf("clear conversation state: %w", err)
		}
		fs.log.Debug("Flow completed", "conversation_id", conversation.ID)
		return nil, nil
	}

	outgoing := &types.Message{
		ConversationID: conversation.ID,
		Direction:      types.MessageDirectionOutgoing,
		Type:           "text",
		Content:        node.Content,
		Status:         types.MessageStatusPending,
		Source:         types.MessageSourceFlow,
	}
	created, err := fs.msgRepo.Create(ctx, nil, outgoing)
	if err != nil {
		return nil, fmt.Errorf("append flow message: %w", err)
	}

	if err := fs.stateRepo.SetCurrentNode(ctx, nil, conversation.ID, &node.ID); err != nil {
		return nil, fmt.Errorf("advance conversation state: %w", err)
	}

	now := time.Now().UTC()
	if err := fs.convRepo.TouchActivity(ctx, nil, conversation.ID, &now); err != nil {
		fs.log.Warn("Failed to touch conversation activity", "conversation_id", conversation.ID, "error", err)
	}

	return &FlowReply{Text: node.Content, Message: created}, nil
}
