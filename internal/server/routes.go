package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zdk-labs/docchat/internal/llm"
	"github.com/zdk-labs/docchat/internal/parsing"
	"github.com/zdk-labs/docchat/internal/rag"
	"github.com/zdk-labs/docchat/internal/store"
)

func (s *Server) registerRoutes(r chi.Router) {
	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", s.handleCreateProject)
		r.Get("/", s.handleListProjects)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Patch("/", s.handleUpdateProject)
			r.Delete("/", s.handleDeleteProject)

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", s.handleUploadDocument)
				r.Get("/", s.handleListDocuments)
				r.Get("/{documentID}", s.handleGetDocument)
				r.Delete("/{documentID}", s.handleDeleteDocument)
			})

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", s.handleCreateChat)
				r.Get("/", s.handleListChats)

				r.Route("/{chatID}", func(r chi.Router) {
					r.Get("/", s.handleGetChat)
					r.Patch("/", s.handleUpdateChat)
					r.Delete("/", s.handleDeleteChat)
					r.Post("/documents", s.handleAddChatDocuments)
					r.Post("/messages", s.handleSendMessage)
					r.Get("/messages", s.handleListMessages)
				})
			})
		})
	})
}

// --- projects ---

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	project, err := s.db.CreateProject(r.Context(), req.Name, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.db.ListProjects(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []store.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project := s.project(w, r)
	if project == nil {
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	project := s.project(w, r)
	if project == nil {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.db.UpdateProject(r.Context(), project.ID, req.Name, req.Description)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	project := s.project(w, r)
	if project == nil {
		return
	}

	docs, err := s.db.ListDocuments(r.Context(), project.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, doc := range docs {
		if err := s.pipeline.RemoveDocument(r.Context(), doc.ID); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if err := s.db.DeleteProject(r.Context(), project.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- documents ---

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	project := s.project(w, r)
	if project == nil {
		return
	}

	maxBytes := int64(s.cfg.MaxFileSizeMB) * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1024)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d MB limit", s.cfg.MaxFileSizeMB))
		return
	}
	fileType := parsing.FileType(header.Filename)
	if !s.cfg.AllowsExtension(fileType) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file type %q is not allowed", fileType))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}
	text, err := parsing.ExtractText(header.Filename, data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := s.db.CreateDocument(r.Context(), project.ID, header.Filename, fileType, header.Size, text)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Ingestion can outlive the upload request; status is readable via GET.
	go func(doc store.Document) {
		if err := s.pipeline.IngestDocument(context.Background(), &doc); err != nil {
			log.Printf("ingesting %s: %v", doc.Name, err)
		}
	}(*doc)

	writeJSON(w, http.StatusAccepted, doc)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	project := s.project(w, r)
	if project == nil {
		return
	}
	docs, err := s.db.ListDocuments(r.Context(), project.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w, r)
	if doc == nil {
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.document(w, r)
	if doc == nil {
		return
	}
	if err := s.pipeline.RemoveDocument(r.Context(), doc.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- chats ---

type chatResponse struct {
	store.Chat
	DocumentIDs []string `json:"document_ids"`
}

func (s *Server) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	project := s.project(w, r)
	if project == nil {
		return
	}

	var req struct {
		Name        string   `json:"name"`
		DocumentIDs []string `json:"document_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.validateChatScope(w, r, project.ID, req.DocumentIDs) {
		return
	}

	chat, err := s.db.CreateChat(r.Context(), project.ID, req.Name, req.DocumentIDs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, chatResponse{Chat: *chat, DocumentIDs: emptyIfNil(req.DocumentIDs)})
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	project := s.project(w, r)
	if project == nil {
		return
	}
	chats, err := s.db.ListChats(r.Context(), project.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleGetChat(w http.ResponseWriter, r *http.Request) {
	chat := s.chat(w, r)
	if chat == nil {
		return
	}
	scope, err := s.db.ChatDocumentIDs(r.Context(), chat.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Chat: *chat, DocumentIDs: emptyIfNil(scope)})
}

func (s *Server) handleUpdateChat(w http.ResponseWriter, r *http.Request) {
	chat := s.chat(w, r)
	if chat == nil {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := s.db.RenameChat(r.Context(), chat.ID, req.Name); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	updated, err := s.db.GetChat(r.Context(), chat.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chat := s.chat(w, r)
	if chat == nil {
		return
	}
	if err := s.db.DeleteChat(r.Context(), chat.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddChatDocuments(w http.ResponseWriter, r *http.Request) {
	chat := s.chat(w, r)
	if chat == nil {
		return
	}

	var req struct {
		DocumentIDs []string `json:"document_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !s.validateChatScope(w, r, chat.ProjectID, req.DocumentIDs) {
		return
	}

	if err := s.db.AddChatDocuments(r.Context(), chat.ID, req.DocumentIDs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	scope, err := s.db.ChatDocumentIDs(r.Context(), chat.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Chat: *chat, DocumentIDs: emptyIfNil(scope)})
}

// --- messages ---

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	chat := s.chat(w, r)
	if chat == nil {
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	exchange, err := s.orchestrator.HandleMessage(r.Context(), chat.ID, req.Content)
	switch {
	case errors.Is(err, rag.ErrChatNotFound):
		writeError(w, http.StatusNotFound, "chat not found")
		return
	case errors.Is(err, rag.ErrScopeViolation):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, llm.ErrGenerationFailed):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, exchange)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	chat := s.chat(w, r)
	if chat == nil {
		return
	}
	messages, err := s.db.ListMessages(r.Context(), chat.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

// --- helpers ---

// project loads the project named in the URL, writing a 404 when absent.
func (s *Server) project(w http.ResponseWriter, r *http.Request) *store.Project {
	project, err := s.db.GetProject(r.Context(), chi.URLParam(r, "projectID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return nil
	}
	return project
}

// document loads the document named in the URL, confirming it belongs to
// the project in the URL.
func (s *Server) document(w http.ResponseWriter, r *http.Request) *store.Document {
	doc, err := s.db.GetDocument(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if doc == nil || doc.ProjectID != chi.URLParam(r, "projectID") {
		writeError(w, http.StatusNotFound, "document not found")
		return nil
	}
	return doc
}

// chat loads the chat named in the URL, confirming it belongs to the
// project in the URL.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) *store.Chat {
	chat, err := s.db.GetChat(r.Context(), chi.URLParam(r, "chatID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil
	}
	if chat == nil || chat.ProjectID != chi.URLParam(r, "projectID") {
		writeError(w, http.StatusNotFound, "chat not found")
		return nil
	}
	return chat
}

// validateChatScope rejects document IDs that do not belong to the
// project. Writes a 400 and returns false on the first offender.
func (s *Server) validateChatScope(w http.ResponseWriter, r *http.Request, projectID string, documentIDs []string) bool {
	for _, docID := range documentIDs {
		doc, err := s.db.GetDocument(r.Context(), docID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return false
		}
		if doc == nil || doc.ProjectID != projectID {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("document %s does not belong to this project", docID))
			return false
		}
	}
	return true
}

func emptyIfNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
