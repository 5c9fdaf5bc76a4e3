package adapters

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/google/uuid"
)

// LibSQLConversationStore implements ConversationStore on the conversations
// and messages tables.
type LibSQLConversationStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewLibSQLConversationStore creates a new LibSQL conversation store.
func NewLibSQLConversationStore(db *sql.DB) *LibSQLConversationStore {
	return &LibSQLConversationStore{db: db, now: time.Now}
}

func (s *LibSQLConversationStore) CreateConversation(ctx context.Context, c *ports.Conversation) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, owner_id, title, model, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Title, c.Model, now.UnixNano(), now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (s *LibSQLConversationStore) ListConversations(ctx context.Context, ownerID string) ([]ports.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, title, model, created_at, updated_at FROM conversations
		 WHERE owner_id = ? ORDER BY updated_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var out []ports.Conversation
	for rows.Next() {
		var c ports.Conversation
		var created, updated int64
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Model, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.CreatedAt = time.Unix(0, created)
		c.UpdatedAt = time.Unix(0, updated)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return out, nil
}

// CreateMessage appends a message and bumps the conversation's updatedAt in
// one transaction.
func (s *LibSQLConversationStore) CreateMessage(ctx context.Context, m *ports.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	now := s.now()
	m.CreatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, now.UnixNano(), m.ConversationID)
	if err != nil {
		return fmt.Errorf("failed to touch conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation %s: %w", m.ConversationID, ports.ErrConversationNotFound)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, role, content, model, audio_url, image_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.Model, m.AudioURL, m.ImageURL, now.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

func (s *LibSQLConversationStore) ListMessages(ctx context.Context, conversationID string) ([]ports.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, model, audio_url, image_url, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []ports.Message
	for rows.Next() {
		var m ports.Message
		var created int64
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Model, &m.AudioURL, &m.ImageURL, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.CreatedAt = time.Unix(0, created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return out, nil
}

// DeleteConversation removes a conversation and all of its messages.
func (s *LibSQLConversationStore) DeleteConversation(ctx context.Context, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("conversation %s: %w", conversationID, ports.ErrConversationNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

var _ ports.ConversationStore = (*LibSQLConversationStore)(nil)
