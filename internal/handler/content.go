package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"docforest/internal/config"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/httputil"
)

// ContentHandler handles document content and attachment uploads
type ContentHandler struct {
	contentService docsysSvc.ContentService
	logger         *slog.Logger
}

// NewContentHandler creates a new content handler
func NewContentHandler(contentService docsysSvc.ContentService, logger *slog.Logger) *ContentHandler {
	return &ContentHandler{
		contentService: contentService,
		logger:         logger,
	}
}

// PutContent stores a base64 CRDT update, or markdown converted to one
// PUT /api/v1/documents/{id}/content/
func (h *ContentHandler) PutContent(w http.ResponseWriter, r *http.Request) {
	var req docsysSvc.PutContentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := h.contentService.PutContent(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UploadAttachment stores the multipart "file" field as an attachment
// POST /api/v1/documents/{id}/attachment-upload/
func (h *ContentHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxAttachmentSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "file exceeds the attachment size limit")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, config.MaxAttachmentSize+1))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	att, err := h.contentService.UploadAttachment(r.Context(), httputil.GetUserID(r), r.PathValue("id"), &docsysSvc.UploadAttachmentRequest{
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, att)
}
