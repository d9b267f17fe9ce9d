package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	"docforest/internal/httputil"
)

// handleError converts domain errors to problem documents. The code member
// names the error kind so clients can tell a cycle from a bad position.
func handleError(w http.ResponseWriter, err error) {
	var conflictErr *domain.ConflictError

	switch {
	case errors.Is(err, domain.ErrServiceUnavailable):
		httputil.RespondProblem(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", err.Error())
	case errors.Is(err, domain.ErrCycle):
		httputil.RespondProblem(w, http.StatusBadRequest, "CYCLE", err.Error())
	case errors.Is(err, domain.ErrInvalidTarget):
		httputil.RespondProblem(w, http.StatusBadRequest, "INVALID_TARGET", err.Error())
	case errors.Is(err, domain.ErrDecodeFailed):
		httputil.RespondProblem(w, http.StatusBadRequest, "DECODE_FAILED", err.Error())
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondProblem(w, http.StatusBadRequest, "VALIDATION", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondProblem(w, http.StatusNotFound, "NOT_FOUND", "document not found")
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondProblem(w, http.StatusUnauthorized, "UNAUTHORIZED", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondProblem(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondProblem(w, http.StatusConflict, "CONFLICT", conflictErr.Error())
	case errors.Is(err, domain.ErrMultipleRoots):
		slog.Error("forest invariant violated", "error", err)
		httputil.RespondProblem(w, http.StatusInternalServerError, "MULTIPLE_ROOTS", err.Error())
	default:
		slog.Error("unhandled error", "error", err)
		httputil.RespondProblem(w, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

// parseListOptions reads limit and offset. Missing values take the defaults.
func parseListOptions(r *http.Request) (models.ListOptions, error) {
	var opts models.ListOptions
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, &domain.ValidationError{Message: "limit: must be a non-negative integer"}
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, &domain.ValidationError{Message: "offset: must be a non-negative integer"}
		}
		opts.Offset = n
	}
	return opts, nil
}
