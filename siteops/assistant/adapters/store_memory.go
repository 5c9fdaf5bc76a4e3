package adapters

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/google/uuid"
)

// MemoryConversationStore keeps conversations in process memory. It backs
// the CLI when no database is configured.
type MemoryConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*ports.Conversation
	order         []string // conversation ids in creation order
	messages      map[string][]ports.Message
	now           func() time.Time
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{
		conversations: make(map[string]*ports.Conversation),
		messages:      make(map[string][]ports.Message),
		now:           time.Now,
	}
}

func (s *MemoryConversationStore) CreateConversation(ctx context.Context, c *ports.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if _, exists := s.conversations[c.ID]; exists {
		return fmt.Errorf("conversation %s already exists", c.ID)
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	stored := *c
	s.conversations[c.ID] = &stored
	s.order = append(s.order, c.ID)
	return nil
}

// ListConversations returns the owner's conversations, most recently updated first.
func (s *MemoryConversationStore) ListConversations(ctx context.Context, ownerID string) ([]ports.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ports.Conversation
	for i := len(s.order) - 1; i >= 0; i-- {
		c := s.conversations[s.order[i]]
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	slices.SortStableFunc(out, func(a, b ports.Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return out, nil
}

func (s *MemoryConversationStore) CreateMessage(ctx context.Context, m *ports.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conversations[m.ConversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", m.ConversationID, ports.ErrConversationNotFound)
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := s.now()
	m.CreatedAt = now
	c.UpdatedAt = now

	s.messages[m.ConversationID] = append(s.messages[m.ConversationID], *m)
	return nil
}

// ListMessages returns a copy of the conversation's messages in insertion order.
func (s *MemoryConversationStore) ListMessages(ctx context.Context, conversationID string) ([]ports.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages[conversationID]), nil
}

func (s *MemoryConversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conversationID]; !ok {
		return fmt.Errorf("conversation %s: %w", conversationID, ports.ErrConversationNotFound)
	}
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == conversationID })
	return nil
}

var _ ports.ConversationStore = (*MemoryConversationStore)(nil)
