package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const (
	collectionName = "chunks"
	defaultTopK    = 5
)

// ChromemStore implements VectorStore using chromem-go with precomputed
// embeddings. Alongside the collection it keeps a guarded index of chunk
// metadata: chromem's where clause can only express equality, so document
// allow-lists, candidate counting and tie-breaking happen here. The index is
// only updated after a full batch lands in chromem, which keeps partially
// ingested documents invisible to Query.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int
	embedFunc  chromem.EmbeddingFunc

	mu    sync.RWMutex
	index map[string]chunkMeta // chunk ID -> metadata
}

var _ VectorStore = (*ChromemStore)(nil)

type chunkMeta struct {
	ProjectID  string `json:"project_id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
}

// NewChromemStore creates an in-memory ChromemStore for vectors of the given
// fixed dimension.
func NewChromemStore(dimensions int) (*ChromemStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vectordb: dimensions must be positive, got %d", dimensions)
	}

	db := chromem.NewDB()

	// All embeddings are computed upstream; chromem must never embed on
	// its own or stored and query vectors could come from different models.
	ef := func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("vectordb: embeddings must be precomputed")
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{
		db:         db,
		collection: col,
		dimensions: dimensions,
		embedFunc:  ef,
		index:      make(map[string]chunkMeta),
	}, nil
}

func (s *ChromemStore) UpsertChunks(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, store expects %d",
				ErrDimensionMismatch, c.ID, len(c.Embedding), s.dimensions)
		}
		docs[i] = chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata:  metadataToMap(c),
		}
	}

	if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("chromem add documents: %w", err)
	}

	s.mu.Lock()
	for _, c := range chunks {
		s.index[c.ID] = chunkMeta{ProjectID: c.ProjectID, DocumentID: c.DocumentID, Ordinal: c.Ordinal}
	}
	s.mu.Unlock()

	return nil
}

func (s *ChromemStore) Query(ctx context.Context, vec []float32, filter ScopeFilter, topK int) ([]ScoredChunk, error) {
	if len(vec) != s.dimensions {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store expects %d",
			ErrDimensionMismatch, len(vec), s.dimensions)
	}
	if topK <= 0 {
		topK = defaultTopK
	}

	// Fetch every queryable chunk of the project and narrow down locally.
	// The index count is never larger than chromem's own filtered count, so
	// nResults stays within chromem's bounds.
	s.mu.RLock()
	candidates := 0
	for _, m := range s.index {
		if m.ProjectID == filter.ProjectID {
			candidates++
		}
	}
	s.mu.RUnlock()

	if candidates == 0 {
		return nil, nil
	}

	where := map[string]string{"project_id": filter.ProjectID}
	results, err := s.collection.QueryEmbedding(ctx, vec, candidates, where, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	s.mu.RLock()
	scored := make([]ScoredChunk, 0, len(results))
	for _, r := range results {
		if _, ok := s.index[r.ID]; !ok {
			continue // not fully ingested or being deleted
		}
		chunk := chunkFromResult(r)
		if !filter.allows(chunk.DocumentID) {
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: chunk, Similarity: r.Similarity})
	}
	s.mu.RUnlock()

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		if scored[i].Chunk.Ordinal != scored[j].Chunk.Ordinal {
			return scored[i].Chunk.Ordinal < scored[j].Chunk.Ordinal
		}
		return scored[i].Chunk.DocumentID < scored[j].Chunk.DocumentID
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *ChromemStore) DeleteByDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	for id, m := range s.index {
		if m.DocumentID == documentID {
			delete(s.index, id)
		}
	}
	s.mu.Unlock()

	if s.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{"document_id": documentID}
	if err := s.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}
	return nil
}

func (s *ChromemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Persist saves the chromem collection and the chunk index to dir.
func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create vector store dir: %w", err)
	}
	if err := s.db.ExportToFile(filepath.Join(dir, "chromem.gob.gz"), true, ""); err != nil {
		return fmt.Errorf("export collection: %w", err)
	}

	s.mu.RLock()
	data, err := json.Marshal(s.index)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal chunk index: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "chunks.json"), data, 0o644); err != nil {
		return fmt.Errorf("write chunk index: %w", err)
	}
	return nil
}

// Load restores a previously persisted store from dir.
func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(filepath.Join(dir, "chromem.gob.gz"), ""); err != nil {
		return fmt.Errorf("import collection: %w", err)
	}

	// Re-acquire collection reference after import.
	col := s.db.GetCollection(collectionName, s.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}
	s.collection = col

	data, err := os.ReadFile(filepath.Join(dir, "chunks.json"))
	if err != nil {
		return fmt.Errorf("read chunk index: %w", err)
	}
	index := make(map[string]chunkMeta)
	if err := json.Unmarshal(data, &index); err != nil {
		return fmt.Errorf("unmarshal chunk index: %w", err)
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()
	return nil
}

func metadataToMap(c ChunkRecord) map[string]string {
	return map[string]string{
		"project_id":    c.ProjectID,
		"document_id":   c.DocumentID,
		"document_name": c.DocumentName,
		"ordinal":       strconv.Itoa(c.Ordinal),
		"page":          strconv.Itoa(c.Page),
	}
}

func chunkFromResult(r chromem.Result) ChunkRecord {
	ordinal, _ := strconv.Atoi(r.Metadata["ordinal"])
	page, _ := strconv.Atoi(r.Metadata["page"])
	return ChunkRecord{
		ID:           r.ID,
		ProjectID:    r.Metadata["project_id"],
		DocumentID:   r.Metadata["document_id"],
		DocumentName: r.Metadata["document_name"],
		Ordinal:      ordinal,
		Page:         page,
		Text:         r.Content,
		Embedding:    r.Embedding,
	}
}
