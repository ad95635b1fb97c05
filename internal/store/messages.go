package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateMessage appends a conversation turn to a chat.
func (s *Store) CreateMessage(ctx context.Context, chatID string, role Role, content string, sources []Source) (*Message, error) {
	m := Message{
		ID:        uuid.New().String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		Sources:   sources,
		CreatedAt: time.Now().UTC(),
	}
	if m.Sources == nil {
		m.Sources = []Source{}
	}
	sourcesJSON, err := json.Marshal(m.Sources)
	if err != nil {
		return nil, fmt.Errorf("marshalling sources: %w", err)
	}

	_, err = s.ExecContext(ctx,
		`INSERT INTO messages (id, chat_id, role, content, sources, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ChatID, m.Role, m.Content, string(sourcesJSON), m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	return &m, nil
}

// ListMessages returns a chat's turns oldest first. Insertion order breaks
// same-timestamp ties so history reads are stable.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, chat_id, role, content, sources, created_at FROM messages
		 WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var sourcesJSON string
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Role, &m.Content, &sourcesJSON, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &m.Sources); err != nil {
			return nil, fmt.Errorf("unmarshalling sources for message %s: %w", m.ID, err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of turns in a chat.
func (s *Store) CountMessages(ctx context.Context, chatID string) (int, error) {
	var n int
	err := s.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chatID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return n, nil
}
