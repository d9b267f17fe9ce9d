package handler

import (
	"context"
	"net/http"
	"time"

	"docforest/internal/httputil"
)

// HealthCheck is a named dependency probe.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler reports liveness and the state of its dependencies
type HealthHandler struct {
	checks []HealthCheck
}

// NewHealthHandler creates a health handler running checks on every request
func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck answers 200 when every dependency responds, 503 otherwise
// GET /health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			deps[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		deps[c.Name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	httputil.RespondJSON(w, status, map[string]any{
		"status":       state,
		"time":         time.Now().UTC(),
		"dependencies": deps,
	})
}
