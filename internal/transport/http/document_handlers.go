package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/docsync-server/internal/store"
)

// DocumentHandlers provides HTTP handlers for document management endpoints.
// Live edits flow through the WebSocket sync engine; this surface only
// creates documents and reads current state and history.
type DocumentHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewDocumentHandlers creates a new document handlers instance.
func NewDocumentHandlers(st store.Store, logger *zerolog.Logger) *DocumentHandlers {
	return &DocumentHandlers{
		store: st,
		log:   logger,
	}
}

// CreateDocumentRequest represents the create document request body.
type CreateDocumentRequest struct {
	Title   string `json:"title" binding:"required,min=1,max=128"`
	Content string `json:"content"`
}

// DocumentResponse represents a document in API responses.
type DocumentResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	OwnerID   *int64 `json:"owner_id,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// VersionResponse represents a version snapshot in API responses.
type VersionResponse struct {
	Content string `json:"content"`
	SavedBy string `json:"savedBy"`
	SavedAt string `json:"savedAt"`
}

func documentResponse(doc *store.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		OwnerID:   doc.OwnerID,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: doc.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateDocument handles document creation.
// POST /api/documents
func (h *DocumentHandlers) CreateDocument(c *gin.Context) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	uid, ok := userID.(int64)
	if !ok {
		h.log.Error().Msg("invalid user_id type in context")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create document request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	doc, err := h.store.CreateDocument(c.Request.Context(), req.Title, req.Content, &uid)
	if err != nil {
		h.log.Error().Err(err).Str("title", req.Title).Msg("failed to create document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("doc_id", doc.ID).Int64("owner_id", uid).Msg("document created")
	c.JSON(http.StatusCreated, documentResponse(doc))
}

// ListDocuments handles listing all documents.
// GET /api/documents
func (h *DocumentHandlers) ListDocuments(c *gin.Context) {
	docs, err := h.store.ListDocuments(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list documents")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		response = append(response, documentResponse(doc))
	}

	c.JSON(http.StatusOK, response)
}

// GetDocument handles fetching a single document.
// GET /api/documents/:id
func (h *DocumentHandlers) GetDocument(c *gin.Context) {
	doc, err := h.store.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
			return
		}
		h.log.Error().Err(err).Str("doc_id", c.Param("id")).Msg("failed to get document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, documentResponse(doc))
}

// ListVersions handles fetching a document's version history.
// GET /api/documents/:id/versions
func (h *DocumentHandlers) ListVersions(c *gin.Context) {
	docID := c.Param("id")

	// Versions of a missing document are a 404, not an empty list.
	if _, err := h.store.GetDocument(c.Request.Context(), docID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "document not found"})
			return
		}
		h.log.Error().Err(err).Str("doc_id", docID).Msg("failed to get document")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	versions, err := h.store.ListVersions(c.Request.Context(), docID)
	if err != nil {
		h.log.Error().Err(err).Str("doc_id", docID).Msg("failed to list versions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]VersionResponse, 0, len(versions))
	for _, v := range versions {
		response = append(response, VersionResponse{
			Content: v.Content,
			SavedBy: v.SavedBy,
			SavedAt: v.SavedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}
