package handler

import (
	"log/slog"
	"net/http"

	models "docforest/internal/domain/models/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/httputil"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	docService docsysSvc.DocumentService
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService docsysSvc.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		logger:     logger,
	}
}

// CreateDocument creates a document relative to a reference, or a new root
// POST /api/v1/documents/
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req docsysSvc.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.UserID = httputil.GetUserID(r)
	if req.Position == 0 {
		req.Position = models.PositionLastChild
	}

	doc, err := h.docService.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// GetDocument retrieves a document by ID
// GET /api/v1/documents/{id}/
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docService.GetDocument(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

type updateDocumentBody struct {
	Title httputil.OptionalString `json:"title"`
}

// UpdateDocument sets or clears the title; null clears it
// PATCH /api/v1/documents/{id}/
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	var body updateDocumentBody
	if err := httputil.ParseJSON(w, r, &body); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := &docsysSvc.UpdateDocumentRequest{
		Title: docsysSvc.OptionalString{Set: body.Title.Present, Value: body.Title.Value},
	}
	doc, err := h.docService.UpdateDocument(r.Context(), httputil.GetUserID(r), r.PathValue("id"), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteDocument soft-deletes a document and its subtree
// DELETE /api/v1/documents/{id}/
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := h.docService.DeleteDocument(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// MoveDocument moves a subtree next to or under a reference document
// POST /api/v1/documents/move
func (h *DocumentHandler) MoveDocument(w http.ResponseWriter, r *http.Request) {
	var req docsysSvc.MoveDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.docService.MoveDocument(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}
