package assistantports

import (
	"context"
	"errors"
	"time"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// ErrConversationNotFound is returned by stores for unknown conversation ids.
var ErrConversationNotFound = errors.New("conversation not found")

// Conversation is a chat thread owned by exactly one caller.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Message is an append-only entry in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	Model          string    `json:"model,omitempty"`
	AudioURL       string    `json:"audioUrl,omitempty"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ConversationStore persists conversations and their messages.
// ListMessages returns messages in creation order; ties keep insertion order.
type ConversationStore interface {
	CreateConversation(ctx context.Context, c *Conversation) error
	ListConversations(ctx context.Context, ownerID string) ([]Conversation, error)
	CreateMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}
