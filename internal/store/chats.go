package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateChat inserts a chat and associates the given documents as its
// retrieval scope. An empty documentIDs slice leaves the scope open to the
// whole project.
func (s *Store) CreateChat(ctx context.Context, projectID, name string, documentIDs []string) (*Chat, error) {
	if name == "" {
		name = "New Chat"
	}
	now := time.Now().UTC()
	c := Chat{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning chat transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chats (id, project_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.ProjectID, c.Name, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting chat: %w", err)
	}
	for _, docID := range documentIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO chat_documents (chat_id, document_id) VALUES (?, ?)`,
			c.ID, docID,
		)
		if err != nil {
			return nil, fmt.Errorf("associating document %s: %w", docID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing chat: %w", err)
	}
	return &c, nil
}

// GetChat returns a chat by ID, or nil when it does not exist.
func (s *Store) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	err := s.QueryRowContext(ctx,
		`SELECT id, project_id, name, created_at, updated_at FROM chats WHERE id = ?`, id,
	).Scan(&c.ID, &c.ProjectID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting chat: %w", err)
	}
	return &c, nil
}

// ListChats returns a project's chats, most recently active first.
func (s *Store) ListChats(ctx context.Context, projectID string) ([]Chat, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, project_id, name, created_at, updated_at FROM chats
		 WHERE project_id = ? ORDER BY updated_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning chat: %w", err)
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// RenameChat updates a chat's name.
func (s *Store) RenameChat(ctx context.Context, id, name string) error {
	_, err := s.ExecContext(ctx,
		`UPDATE chats SET name = ?, updated_at = ? WHERE id = ?`,
		name, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("renaming chat: %w", err)
	}
	return nil
}

// TouchChat bumps a chat's updated_at timestamp.
func (s *Store) TouchChat(ctx context.Context, id string) error {
	_, err := s.ExecContext(ctx,
		`UPDATE chats SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touching chat: %w", err)
	}
	return nil
}

// DeleteChat removes a chat; its messages and scope rows cascade.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	if _, err := s.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	return nil
}

// ChatDocumentIDs returns the chat's document scope in insertion-stable
// order. Empty means the whole project is in scope.
func (s *Store) ChatDocumentIDs(ctx context.Context, chatID string) ([]string, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT document_id FROM chat_documents WHERE chat_id = ? ORDER BY document_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("querying chat documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning chat document: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddChatDocuments widens a chat's document scope.
func (s *Store) AddChatDocuments(ctx context.Context, chatID string, documentIDs []string) error {
	for _, docID := range documentIDs {
		_, err := s.ExecContext(ctx,
			`INSERT OR IGNORE INTO chat_documents (chat_id, document_id) VALUES (?, ?)`,
			chatID, docID,
		)
		if err != nil {
			return fmt.Errorf("associating document %s: %w", docID, err)
		}
	}
	return nil
}
