package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chatwire/chatwire-backend/internal/types"
)

// In-memory stand-ins for the repo and client interfaces. They keep enough
// state to let the services run full scenarios without a database.

type fakeOpenAI struct {
	embedFn    func(text string) []float32
	generateFn func(system, user string) (string, error)
	generated  []string
}

func (f *fakeOpenAI) Embed(ctx context.Context, text string) []float32 {
	if f.embedFn == nil {
		return nil
	}
	return f.embedFn(text)
}

func (f *fakeOpenAI) GenerateText(ctx context.Context, system string, user string, temperature *float64) (string, error) {
	f.generated = append(f.generated, user)
	if f.generateFn == nil {
		return "", nil
	}
	return f.generateFn(system, user)
}

type fakeRetriever struct {
	candidates []KnowledgeCandidate
}

func (f *fakeRetriever) Retrieve(ctx context.Context, tenantID uuid.UUID, message string) []KnowledgeCandidate {
	return f.candidates
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	stores  int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]string{}}
}

func (f *fakeCache) Lookup(ctx context.Context, tenantID uuid.UUID, message string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	answer, ok := f.entries[HashMessage(tenantID, message)]
	return answer, ok
}

func (f *fakeCache) Store(ctx context.Context, tenantID uuid.UUID, message string, answer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[HashMessage(tenantID, message)] = answer
	f.stores++
}

type fakeConvRepo struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]*types.Conversation
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{conversations: map[uuid.UUID]*types.Conversation{}}
}

func (f *fakeConvRepo) Create(ctx context.Context, tx *gorm.DB, conversation *types.Conversation) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if conversation.ID == uuid.Nil {
		conversation.ID = uuid.New()
	}
	f.conversations[conversation.ID] = conversation
	return conversation, nil
}

func (f *fakeConvRepo) GetByID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conversations[conversationID], nil
}

func (f *fakeConvRepo) GetOpenByTenantAndSender(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, senderWaID string) (*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.TenantID == tenantID && c.SenderWaID == senderWaID && c.Status != types.ConversationStatusClosed {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeConvRepo) ListByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, limit int) ([]*types.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Conversation
	for _, c := range f.conversations {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeConvRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.conversations[conversationID]; ok {
		c.Status = status
	}
	return nil
}

func (f *fakeConvRepo) TouchActivity(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, messageAt *time.Time) error {
	return nil
}

type fakeStateRepo struct {
	mu     sync.Mutex
	states map[uuid.UUID]*types.ConversationState
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[uuid.UUID]*types.ConversationState{}}
}

func (f *fakeStateRepo) GetByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) (*types.ConversationState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[conversationID], nil
}

func (f *fakeStateRepo) SetCurrentNode(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, nodeID *uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[conversationID]
	if !ok {
		state = &types.ConversationState{ID: uuid.New(), ConversationID: conversationID}
		f.states[conversationID] = state
	}
	state.CurrentNodeID = nodeID
	return nil
}

func (f *fakeStateRepo) DeleteByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, conversationID)
	return nil
}

type fakeMsgRepo struct {
	mu       sync.Mutex
	messages []*types.Message
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{}
}

func (f *fakeMsgRepo) Create(ctx context.Context, tx *gorm.DB, message *types.Message) (*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	f.messages = append(f.messages, message)
	return message, nil
}

func (f *fakeMsgRepo) ListByConversationID(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, limit int) ([]*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Message
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMsgRepo) GetOutgoingByExternalID(ctx context.Context, tx *gorm.DB, externalMessageID string) (*types.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.Direction == types.MessageDirectionOutgoing && m.ExternalMessageID == externalMessageID {
			return m, nil
		}
	}
	return nil, nil
}

func (f *fakeMsgRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == messageID {
			m.Status = status
		}
	}
	return nil
}

func (f *fakeMsgRepo) SetDispatchResult(ctx context.Context, tx *gorm.DB, messageID uuid.UUID, externalMessageID string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID == messageID {
			m.ExternalMessageID = externalMessageID
			m.Status = status
		}
	}
	return nil
}

func (f *fakeMsgRepo) byDirection(direction string) []*types.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Message
	for _, m := range f.messages {
		if m.Direction == direction {
			out = append(out, m)
		}
	}
	return out
}

type fakeChatbotRepo struct {
	chatbot *types.Chatbot
}

func (f *fakeChatbotRepo) Create(ctx context.Context, tx *gorm.DB, chatbot *types.Chatbot) (*types.Chatbot, error) {
	f.chatbot = chatbot
	return chatbot, nil
}

func (f *fakeChatbotRepo) GetByID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) (*types.Chatbot, error) {
	if f.chatbot != nil && f.chatbot.ID == chatbotID {
		return f.chatbot, nil
	}
	return nil, nil
}

func (f *fakeChatbotRepo) GetActiveByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Chatbot, error) {
	if f.chatbot != nil && f.chatbot.TenantID == tenantID && f.chatbot.IsActive {
		return f.chatbot, nil
	}
	return nil, nil
}

type fakeTriggerRepo struct {
	triggers []*types.ChatbotTrigger
}

func (f *fakeTriggerRepo) Create(ctx context.Context, tx *gorm.DB, trigger *types.ChatbotTrigger) (*types.ChatbotTrigger, error) {
	f.triggers = append(f.triggers, trigger)
	return trigger, nil
}

func (f *fakeTriggerRepo) GetByChatbotID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) ([]*types.ChatbotTrigger, error) {
	return f.triggers, nil
}

type fakeNodeRepo struct {
	nodes map[uuid.UUID]*types.ChatbotNode
	first *types.ChatbotNode
}

func newFakeNodeRepo(nodes ...*types.ChatbotNode) *fakeNodeRepo {
	repo := &fakeNodeRepo{nodes: map[uuid.UUID]*types.ChatbotNode{}}
	for _, n := range nodes {
		repo.nodes[n.ID] = n
	}
	if len(nodes) > 0 {
		repo.first = nodes[0]
	}
	return repo
}

func (f *fakeNodeRepo) Create(ctx context.Context, tx *gorm.DB, node *types.ChatbotNode) (*types.ChatbotNode, error) {
	if node.ID == uuid.Nil {
		node.ID = uuid.New()
	}
	f.nodes[node.ID] = node
	return node, nil
}

func (f *fakeNodeRepo) Update(ctx context.Context, tx *gorm.DB, node *types.ChatbotNode) (*types.ChatbotNode, error) {
	f.nodes[node.ID] = node
	return node, nil
}

func (f *fakeNodeRepo) GetByID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) (*types.ChatbotNode, error) {
	return f.nodes[nodeID], nil
}

func (f *fakeNodeRepo) GetByChatbotID(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) ([]*types.ChatbotNode, error) {
	var out []*types.ChatbotNode
	for _, n := range f.nodes {
		if n.ChatbotID == chatbotID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNodeRepo) GetFirstNode(ctx context.Context, tx *gorm.DB, chatbotID uuid.UUID) (*types.ChatbotNode, error) {
	return f.first, nil
}

type fakeKnowledgeRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*types.KnowledgeEntry
}

func newFakeKnowledgeRepo(entries ...*types.KnowledgeEntry) *fakeKnowledgeRepo {
	repo := &fakeKnowledgeRepo{entries: map[uuid.UUID]*types.KnowledgeEntry{}}
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		repo.entries[e.ID] = e
	}
	return repo
}

func (f *fakeKnowledgeRepo) Create(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) (*types.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f *fakeKnowledgeRepo) Update(ctx context.Context, tx *gorm.DB, entry *types.KnowledgeEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.ID] = entry
	return nil
}

func (f *fakeKnowledgeRepo) GetByID(ctx context.Context, tx *gorm.DB, entryID uuid.UUID) (*types.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[entryID], nil
}

func (f *fakeKnowledgeRepo) ListByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.KnowledgeEntry
	for _, e := range f.entries {
		if e.TenantID == tenantID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeKnowledgeRepo) ListActiveIndexed(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.KnowledgeEntry
	for _, e := range f.entries {
		if e.TenantID == tenantID && e.IsActive && len(e.Embedding) > 0 {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeKnowledgeRepo) ListUnindexed(ctx context.Context, tx *gorm.DB, limit int) ([]*types.KnowledgeEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.KnowledgeEntry
	for _, e := range f.entries {
		if e.IsActive && len(e.Embedding) == 0 {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeKnowledgeRepo) SaveEmbedding(ctx context.Context, tx *gorm.DB, entryID uuid.UUID, embedding datatypes.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[entryID]; ok {
		e.Embedding = embedding
	}
	return nil
}

type fakeConnectionRepo struct {
	connection *types.Connection
}

func (f *fakeConnectionRepo) Create(ctx context.Context, tx *gorm.DB, connection *types.Connection) (*types.Connection, error) {
	f.connection = connection
	return connection, nil
}

func (f *fakeConnectionRepo) GetByPhoneNumberID(ctx context.Context, tx *gorm.DB, phoneNumberID string) (*types.Connection, error) {
	if f.connection != nil && f.connection.PhoneNumberID == phoneNumberID && f.connection.IsActive {
		return f.connection, nil
	}
	return nil, nil
}

func (f *fakeConnectionRepo) GetActiveByTenantID(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*types.Connection, error) {
	if f.connection != nil && f.connection.TenantID == tenantID && f.connection.IsActive {
		return f.connection, nil
	}
	return nil, nil
}

type sentReply struct {
	recipientWaID string
	text          string
	messageID     uuid.UUID
}

type fakeDispatch struct {
	mu    sync.Mutex
	sends []sentReply
}

func (f *fakeDispatch) Send(ctx context.Context, connection *types.Connection, recipientWaID string, text string, messageID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, sentReply{recipientWaID: recipientWaID, text: text, messageID: messageID})
	return nil
}

type routedCall struct {
	tenantID   uuid.UUID
	senderWaID string
	text       string
}

type fakeRouter struct {
	mu     sync.Mutex
	calls  []routedCall
	result *RouteResult
}

func (f *fakeRouter) Route(ctx context.Context, tenantID uuid.UUID, senderWaID string, text string) (*RouteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, routedCall{tenantID: tenantID, senderWaID: senderWaID, text: text})
	return f.result, nil
}
