package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zdk-labs/docchat/internal/llm"
	"github.com/zdk-labs/docchat/internal/store"
	"github.com/zdk-labs/docchat/internal/vectordb"
)

// ContextSource identifies one context block fed to generation, keyed by
// its bracketed label number so citations in the answer can be resolved.
type ContextSource struct {
	Label        int
	DocumentID   string
	DocumentName string
	Ordinal      int
	Page         int
}

const systemPreamble = `You are an assistant that answers questions about the user's documents.
Answer using the context blocks below. Cite the blocks you used with their bracketed numbers, e.g. [1].
If the context does not contain the answer, say so instead of guessing.`

const noContextNotice = `You are an assistant that answers questions about the user's documents.
No relevant document content was found for this question. Answer from the conversation alone and say that no sources were available.`

// Assembler builds the generation prompt from retrieved chunks, prior
// conversation turns and the current question, within a character budget.
// Chunks get the budget first, down to a reserved floor for history;
// history is then trimmed oldest-first. The newest turns and the question
// are never dropped.
type Assembler struct {
	maxContextChars int
	minHistoryChars int
}

// NewAssembler creates an Assembler with the given character budget and
// history floor.
func NewAssembler(maxContextChars, minHistoryChars int) *Assembler {
	return &Assembler{maxContextChars: maxContextChars, minHistoryChars: minHistoryChars}
}

// Assemble returns the chat messages to send to generation and the context
// sources that back them, in label order.
func (a *Assembler) Assemble(chunks []vectordb.ScoredChunk, history []store.Message, question string) ([]llm.Message, []ContextSource) {
	chunkBudget := a.maxContextChars - a.minHistoryChars

	var blocks []string
	var sources []ContextSource
	used := 0
	for _, sc := range chunks {
		label := len(sources) + 1
		block := fmt.Sprintf("[%d] %s (chunk %d)\n%s", label, sc.Chunk.DocumentName, sc.Chunk.Ordinal, sc.Chunk.Text)
		size := utf8.RuneCountInString(block)
		if used+size > chunkBudget && len(blocks) > 0 {
			break
		}
		blocks = append(blocks, block)
		used += size
		sources = append(sources, ContextSource{
			Label:        label,
			DocumentID:   sc.Chunk.DocumentID,
			DocumentName: sc.Chunk.DocumentName,
			Ordinal:      sc.Chunk.Ordinal,
			Page:         sc.Chunk.Page,
		})
	}

	var system string
	if len(blocks) == 0 {
		system = noContextNotice
	} else {
		system = systemPreamble + "\n\nContext:\n" + strings.Join(blocks, "\n---\n")
	}

	messages := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	messages = append(messages, a.trimHistory(history, a.maxContextChars-used)...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: question})

	return messages, sources
}

// trimHistory keeps the newest turns that fit the remaining budget,
// returned oldest first. The newest turn always survives.
func (a *Assembler) trimHistory(history []store.Message, budget int) []llm.Message {
	var kept []llm.Message
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		size := utf8.RuneCountInString(history[i].Content)
		if used+size > budget && len(kept) > 0 {
			break
		}
		kept = append(kept, llm.Message{Role: llm.Role(history[i].Role), Content: history[i].Content})
		used += size
	}

	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}
