package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zdk-labs/docchat/internal/llm"
	"github.com/zdk-labs/docchat/internal/store"
)

// ErrScopeViolation reports a chat whose document scope references a
// document outside the chat's project.
var ErrScopeViolation = errors.New("document scope outside chat project")

// ErrChatNotFound reports a message sent to a chat that does not exist.
var ErrChatNotFound = errors.New("chat not found")

// Orchestrator sequences one chat message end to end: retrieve, assemble,
// generate, cite, persist. Each message is one independent unit of work.
type Orchestrator struct {
	db              *store.Store
	retriever       *Retriever
	assembler       *Assembler
	provider        llm.Provider
	model           string
	generateTimeout time.Duration
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(db *store.Store, retriever *Retriever, assembler *Assembler, provider llm.Provider, model string, generateTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		db:              db,
		retriever:       retriever,
		assembler:       assembler,
		provider:        provider,
		model:           model,
		generateTimeout: generateTimeout,
	}
}

// Exchange is one completed question/answer round trip. The assistant
// turn carries its sources.
type Exchange struct {
	User      *store.Message `json:"user"`
	Assistant *store.Message `json:"assistant"`
}

// HandleMessage persists the user turn, answers it grounded in the chat's
// document scope and persists the assistant turn with its sources. A
// retrieval failure degrades to an ungrounded answer with no sources; a
// generation failure returns ErrGenerationFailed and leaves the user turn
// in place.
func (o *Orchestrator) HandleMessage(ctx context.Context, chatID, text string) (*Exchange, error) {
	chat, err := o.db.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: %s", ErrChatNotFound, chatID)
	}

	scope, err := o.db.ChatDocumentIDs(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if err := o.validateScope(ctx, chat.ProjectID, scope); err != nil {
		return nil, err
	}

	firstMessage, err := o.isFirstMessage(ctx, chatID)
	if err != nil {
		return nil, err
	}

	userMsg, err := o.db.CreateMessage(ctx, chatID, store.RoleUser, text, nil)
	if err != nil {
		return nil, err
	}

	chunks, err := o.retriever.Retrieve(ctx, text, chat.ProjectID, scope)
	if err != nil {
		log.Printf("retrieval for chat %s degraded to empty context: %v", chatID, err)
		chunks = nil
	}

	history, err := o.history(ctx, chatID, userMsg.ID)
	if err != nil {
		return nil, err
	}

	messages, supplied := o.assembler.Assemble(chunks, history, text)

	// The caller may have gone away during retrieval; don't start a
	// generation nobody is waiting for. The user turn stays.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, o.generateTimeout)
	defer cancel()
	resp, err := o.provider.Complete(genCtx, llm.CompletionRequest{
		Model:    o.model,
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrGenerationFailed, err)
	}

	sources := ExtractSources(resp.Content, supplied)

	assistant, err := o.db.CreateMessage(ctx, chatID, store.RoleAssistant, resp.Content, sources)
	if err != nil {
		return nil, err
	}
	if err := o.db.TouchChat(ctx, chatID); err != nil {
		log.Printf("touching chat %s: %v", chatID, err)
	}

	if firstMessage {
		o.autoTitle(ctx, chat, text)
	}

	return &Exchange{User: userMsg, Assistant: assistant}, nil
}

// validateScope rejects scopes that reach outside the chat's project
// before any retrieval work begins.
func (o *Orchestrator) validateScope(ctx context.Context, projectID string, scope []string) error {
	for _, docID := range scope {
		doc, err := o.db.GetDocument(ctx, docID)
		if err != nil {
			return err
		}
		if doc == nil || doc.ProjectID != projectID {
			return fmt.Errorf("%w: document %s", ErrScopeViolation, docID)
		}
	}
	return nil
}

func (o *Orchestrator) isFirstMessage(ctx context.Context, chatID string) (bool, error) {
	n, err := o.db.CountMessages(ctx, chatID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// history returns the chat's turns before the current user turn, oldest
// first.
func (o *Orchestrator) history(ctx context.Context, chatID, currentUserMsgID string) ([]store.Message, error) {
	all, err := o.db.ListMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if n := len(all); n > 0 && all[n-1].ID == currentUserMsgID {
		all = all[:n-1]
	}
	return all, nil
}

// autoTitle renames a fresh chat after its opening question. Best effort;
// a failure only logs.
func (o *Orchestrator) autoTitle(ctx context.Context, chat *store.Chat, question string) {
	genCtx, cancel := context.WithTimeout(ctx, o.generateTimeout)
	defer cancel()

	resp, err := o.provider.Complete(genCtx, llm.CompletionRequest{
		Model: o.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Write a title of at most six words for a conversation that starts with the user's message. Reply with the title only."},
			{Role: llm.RoleUser, Content: question},
		},
		MaxTokens: 30,
	})
	if err != nil {
		log.Printf("auto-titling chat %s: %v", chat.ID, err)
		return
	}

	title := strings.Trim(strings.TrimSpace(resp.Content), `"'`)
	if title == "" {
		return
	}
	if err := o.db.RenameChat(ctx, chat.ID, title); err != nil {
		log.Printf("renaming chat %s: %v", chat.ID, err)
	}
}
