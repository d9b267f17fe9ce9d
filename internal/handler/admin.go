package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"

	"docforest/internal/httputil"
	"docforest/internal/reconcile"
)

// AdminTokenHeader carries the shared admin secret.
const AdminTokenHeader = "X-Admin-Token"

// ReconcileHandler starts and reports content-type reconciliation runs
type ReconcileHandler struct {
	runner     *reconcile.Runner
	adminToken string
	pageSize   int
	logger     *slog.Logger
}

// NewReconcileHandler creates a new reconcile handler. An empty token
// disables the endpoints.
func NewReconcileHandler(runner *reconcile.Runner, adminToken string, pageSize int, logger *slog.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		runner:     runner,
		adminToken: adminToken,
		pageSize:   pageSize,
		logger:     logger,
	}
}

func (h *ReconcileHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.adminToken == "" {
		httputil.RespondError(w, http.StatusForbidden, "admin endpoints are disabled")
		return false
	}
	token := r.Header.Get(AdminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
		httputil.RespondError(w, http.StatusUnauthorized, "invalid admin token")
		return false
	}
	return true
}

// StartReconcile launches a background run. Query parameters: dry_run,
// resume, and document (repeatable).
// POST /api/v1/admin/reconcile-content-types
func (h *ReconcileHandler) StartReconcile(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	q := r.URL.Query()
	opts := reconcile.Options{PageSize: h.pageSize, DocumentIDs: q["document"]}
	for name, dst := range map[string]*bool{"dry_run": &opts.DryRun, "resume": &opts.Resume} {
		if v := q.Get(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				httputil.RespondError(w, http.StatusBadRequest, name+": must be a boolean")
				return
			}
			*dst = b
		}
	}

	if err := h.runner.Start(r.Context(), opts); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("content-type reconciliation started",
		"dry_run", opts.DryRun,
		"resume", opts.Resume,
		"documents", len(opts.DocumentIDs),
	)
	httputil.RespondJSON(w, http.StatusAccepted, h.runner.Status())
}

// GetReconcileStatus reports whether a run is active and the last report
// GET /api/v1/admin/reconcile-content-types
func (h *ReconcileHandler) GetReconcileStatus(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.runner.Status())
}
