package handler

import (
	"log/slog"
	"net/http"

	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/httputil"
)

// FavoriteHandler handles favorite marks
type FavoriteHandler struct {
	favService docsysSvc.FavoriteService
	logger     *slog.Logger
}

// NewFavoriteHandler creates a new favorite handler
func NewFavoriteHandler(favService docsysSvc.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		favService: favService,
		logger:     logger,
	}
}

// AddFavorite marks a document
// POST /api/v1/documents/{id}/favorite/
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favService.AddFavorite(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveFavorite unmarks a document
// DELETE /api/v1/documents/{id}/favorite/
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.favService.RemoveFavorite(r.Context(), httputil.GetUserID(r), r.PathValue("id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFavorites lists the caller's favorites they still have access to
// GET /api/v1/documents/favorite_list/
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		handleError(w, err)
		return
	}

	page, err := h.favService.ListFavorites(r.Context(), httputil.GetUserID(r), opts)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}
