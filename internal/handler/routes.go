package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups the handlers Register mounts.
type Handlers struct {
	Documents *DocumentHandler
	Tree      *TreeHandler
	Content   *ContentHandler
	Favorites *FavoriteHandler
	Reconcile *ReconcileHandler
	Health    *HealthHandler
}

// PublicPaths bypass user authentication. Admin routes check their own token.
var PublicPaths = []string{"/health", "/metrics", "/api/v1/admin/"}

// Register mounts every route on mux (Go 1.22+ patterns). {$} anchors the
// trailing slash so document routes do not match as subtrees.
func Register(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /health", h.Health.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Document lifecycle
	mux.HandleFunc("GET /api/v1/documents/{$}", h.Tree.ListRoots)
	mux.HandleFunc("POST /api/v1/documents/{$}", h.Documents.CreateDocument)
	mux.HandleFunc("POST /api/v1/documents/move", h.Documents.MoveDocument)
	mux.HandleFunc("POST /api/v1/documents/move/{$}", h.Documents.MoveDocument)
	mux.HandleFunc("GET /api/v1/documents/favorite_list/{$}", h.Favorites.ListFavorites) // more specific than {id}
	mux.HandleFunc("GET /api/v1/documents/{id}/{$}", h.Documents.GetDocument)
	mux.HandleFunc("PATCH /api/v1/documents/{id}/{$}", h.Documents.UpdateDocument)
	mux.HandleFunc("DELETE /api/v1/documents/{id}/{$}", h.Documents.DeleteDocument)

	// Tree reads
	mux.HandleFunc("GET /api/v1/documents/{id}/children/{$}", h.Tree.GetChildren)
	mux.HandleFunc("GET /api/v1/documents/{id}/descendants/{$}", h.Tree.GetDescendants)
	mux.HandleFunc("GET /api/v1/documents/{id}/ancestors/{$}", h.Tree.GetAncestors)
	mux.HandleFunc("GET /api/v1/documents/{id}/tree/{$}", h.Tree.GetTree)

	// Favorites
	mux.HandleFunc("POST /api/v1/documents/{id}/favorite/{$}", h.Favorites.AddFavorite)
	mux.HandleFunc("DELETE /api/v1/documents/{id}/favorite/{$}", h.Favorites.RemoveFavorite)

	// Content
	mux.HandleFunc("PUT /api/v1/documents/{id}/content/{$}", h.Content.PutContent)
	mux.HandleFunc("POST /api/v1/documents/{id}/attachment-upload/{$}", h.Content.UploadAttachment)

	// Admin
	mux.HandleFunc("POST /api/v1/admin/reconcile-content-types", h.Reconcile.StartReconcile)
	mux.HandleFunc("GET /api/v1/admin/reconcile-content-types", h.Reconcile.GetReconcileStatus)
}
