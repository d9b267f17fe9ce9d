package handler

import (
	"log/slog"
	"net/http"

	models "docforest/internal/domain/models/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/httputil"
)

// TreeHandler handles HTTP requests for tree operations
type TreeHandler struct {
	treeService docsysSvc.TreeService
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService docsysSvc.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// ListRoots lists the top-most documents the caller can access
// GET /api/v1/documents/
func (h *TreeHandler) ListRoots(w http.ResponseWriter, r *http.Request) {
	docs, err := h.treeService.Roots(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetChildren lists direct children in sibling order
// GET /api/v1/documents/{id}/children/
func (h *TreeHandler) GetChildren(w http.ResponseWriter, r *http.Request) {
	docs, err := h.treeService.Children(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetDescendants lists descendants, filtered by ?title= and paginated
// GET /api/v1/documents/{id}/descendants/
func (h *TreeHandler) GetDescendants(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		handleError(w, err)
		return
	}
	filters := models.DescendantFilters{Title: r.URL.Query().Get("title")}

	page, err := h.treeService.Descendants(r.Context(), httputil.GetUserID(r), r.PathValue("id"), filters, opts)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// GetAncestors lists the visible ancestors, root first
// GET /api/v1/documents/{id}/ancestors/
func (h *TreeHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	docs, err := h.treeService.Ancestors(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetTree returns the subtree nested under the document
// GET /api/v1/documents/{id}/tree/
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.treeService.Tree(r.Context(), httputil.GetUserID(r), r.PathValue("id"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}
