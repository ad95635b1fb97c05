package store

import "time"

// DocumentStatus tracks a document through ingestion.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusIngesting DocumentStatus = "ingesting"
	StatusReady     DocumentStatus = "ready"
	StatusFailed    DocumentStatus = "failed"
)

// Role identifies the sender of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Project groups documents and chats.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document is an uploaded file with its extracted plain text. Immutable
// once ingested except for deletion; owned exclusively by its project.
type Document struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"project_id"`
	Name       string         `json:"name"`
	FileType   string         `json:"file_type"`
	FileSize   int64          `json:"file_size"`
	Text       string         `json:"-"`
	ChunkCount int            `json:"chunk_count"`
	Status     DocumentStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Chat is a conversation scoped to a subset of its project's documents.
// An empty scope means every document in the project is eligible.
type Chat struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Source is a citation: the document (and position) supporting an answer.
type Source struct {
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	Ordinal      int    `json:"ordinal"`
	Page         int    `json:"page,omitempty"`
}

// Message is one conversation turn. Immutable once created; assistant
// turns carry the sources their answer was grounded in.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Sources   []Source  `json:"sources"`
	CreatedAt time.Time `json:"created_at"`
}
