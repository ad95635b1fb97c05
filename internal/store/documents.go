package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateDocument inserts a document with its extracted text in status
// pending.
func (s *Store) CreateDocument(ctx context.Context, projectID, name, fileType string, fileSize int64, text string) (*Document, error) {
	d := Document{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Name:      name,
		FileType:  fileType,
		FileSize:  fileSize,
		Text:      text,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.ExecContext(ctx,
		`INSERT INTO documents (id, project_id, name, file_type, file_size, text, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ProjectID, d.Name, d.FileType, d.FileSize, d.Text, d.Status, d.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return &d, nil
}

// GetDocument returns a document (including its text) or nil when absent.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	err := s.QueryRowContext(ctx,
		`SELECT id, project_id, name, file_type, file_size, text, chunk_count, status, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&d.ID, &d.ProjectID, &d.Name, &d.FileType, &d.FileSize, &d.Text, &d.ChunkCount, &d.Status, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting document: %w", err)
	}
	return &d, nil
}

// ListDocuments returns a project's documents, newest first, without text.
func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]Document, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT id, project_id, name, file_type, file_size, chunk_count, status, created_at
		 FROM documents WHERE project_id = ? ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Name, &d.FileType, &d.FileSize, &d.ChunkCount, &d.Status, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetDocumentStatus updates a document's ingestion status.
func (s *Store) SetDocumentStatus(ctx context.Context, id string, status DocumentStatus) error {
	if _, err := s.ExecContext(ctx, `UPDATE documents SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	return nil
}

// MarkDocumentReady records a completed ingestion.
func (s *Store) MarkDocumentReady(ctx context.Context, id string, chunkCount int) error {
	_, err := s.ExecContext(ctx,
		`UPDATE documents SET status = ?, chunk_count = ? WHERE id = ?`,
		StatusReady, chunkCount, id,
	)
	if err != nil {
		return fmt.Errorf("marking document ready: %w", err)
	}
	return nil
}

// DeleteDocument removes a document; its chat associations cascade.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}
