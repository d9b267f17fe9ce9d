package reconcile

import (
	"context"
	"log/slog"
	"sync"

	"docforest/internal/domain"
)

// Runner runs the reconciler in the background, one run at a time, and
// keeps the last report.
type Runner struct {
	reconciler *Reconciler
	logger     *slog.Logger

	mu      sync.Mutex
	running bool
	last    *Report
	lastErr error
	done    chan struct{}
}

func NewRunner(reconciler *Reconciler, logger *slog.Logger) *Runner {
	return &Runner{reconciler: reconciler, logger: logger}
}

// Status is the runner state exposed to operators.
type Status struct {
	Running bool    `json:"running"`
	Last    *Report `json:"last_report,omitempty"`
	Error   string  `json:"last_error,omitempty"`
}

// Start launches a run detached from ctx's cancellation. It fails with a
// ConflictError while another run is in progress.
func (r *Runner) Start(ctx context.Context, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return &domain.ConflictError{
			Message:      "content-type reconciliation already running",
			ResourceType: "reconcile",
		}
	}
	r.running = true
	r.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		report, err := r.reconciler.Run(context.WithoutCancel(ctx), opts)
		if err != nil {
			r.logger.Error("content-type reconciliation failed", "error", err)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		r.running = false
		if report != nil {
			r.last = report
		}
		r.lastErr = err
	}(r.done)
	return nil
}

// Status returns whether a run is in progress and the last finished report.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Status{Running: r.running, Last: r.last}
	if r.lastErr != nil {
		s.Error = r.lastErr.Error()
	}
	return s
}

// Wait blocks until the current run, if any, finishes.
func (r *Runner) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}
