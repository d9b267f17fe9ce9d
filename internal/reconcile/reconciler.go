// Package reconcile repairs the Content-Type of attachment objects by
// sniffing their leading bytes.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docforest/internal/blob"
	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	"docforest/internal/mediatypes"
)

// DocumentSource pages through document ids in ascending order.
type DocumentSource interface {
	ListIDs(ctx context.Context, after string, limit int) ([]string, error)
}

// Sniffer maps leading bytes to a media type.
type Sniffer interface {
	Sniff(data []byte) string
}

// Options tune a run.
type Options struct {
	Concurrency int      // documents reconciled in parallel
	BatchSize   int      // document ids fetched per page
	PageSize    int      // keys per blob listing page
	DryRun      bool     // count what would change without copying
	Resume      bool     // start after the saved checkpoint
	DocumentIDs []string // restrict the run to these documents
}

func (o *Options) applyDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.PageSize <= 0 {
		o.PageSize = 1000
	}
}

// Report summarises a run. Updated counts objects whose content type was
// (or, in a dry run, would be) rewritten.
type Report struct {
	StartedAt   time.Time      `json:"started_at"`
	FinishedAt  time.Time      `json:"finished_at"`
	DryRun      bool           `json:"dry_run"`
	Documents   int            `json:"documents"`
	Objects     int            `json:"objects"`
	Updated     int            `json:"updated"`
	Errors      int            `json:"errors"`
	PerDocument map[string]int `json:"per_document"`
	Cancelled   bool           `json:"cancelled"`
}

type docResult struct {
	objects int
	updated int
	errors  int
}

// Config wires a Reconciler.
type Config struct {
	Store       blob.Store
	Documents   DocumentSource
	Sniffer     Sniffer
	Checkpoints Checkpoints
	Logger      *slog.Logger
}

// Reconciler walks every document's attachment prefix and rewrites objects
// whose stored Content-Type disagrees with their bytes.
type Reconciler struct {
	store       blob.Store
	documents   DocumentSource
	sniffer     Sniffer
	checkpoints Checkpoints
	logger      *slog.Logger
}

func New(cfg Config) *Reconciler {
	if cfg.Checkpoints == nil {
		cfg.Checkpoints = NoopCheckpoints{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Reconciler{
		store:       cfg.Store,
		documents:   cfg.Documents,
		sniffer:     cfg.Sniffer,
		checkpoints: cfg.Checkpoints,
		logger:      cfg.Logger,
	}
}

// Run performs one pass. Per-object failures are logged and counted; the
// returned error is reserved for an unreachable store on the first call,
// document listing failures, and cancellation.
func (r *Reconciler) Run(ctx context.Context, opts Options) (*Report, error) {
	opts.applyDefaults()
	start := time.Now()
	report := &Report{StartedAt: start, DryRun: opts.DryRun, PerDocument: make(map[string]int)}

	if _, err := r.store.List(ctx, "", "", 1); err != nil {
		runsTotal.WithLabelValues("unreachable").Inc()
		return nil, &domain.ServiceUnavailableError{Service: "blob store", Err: err}
	}

	err := r.run(ctx, opts, report)

	report.FinishedAt = time.Now()
	runDuration.Observe(report.FinishedAt.Sub(start).Seconds())

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		report.Cancelled = true
		runsTotal.WithLabelValues("cancelled").Inc()
	case err != nil:
		runsTotal.WithLabelValues("failed").Inc()
	default:
		runsTotal.WithLabelValues("completed").Inc()
	}

	r.logger.Info("content-type reconciliation finished",
		"documents", report.Documents,
		"objects", report.Objects,
		"updated", report.Updated,
		"errors", report.Errors,
		"dry_run", report.DryRun,
		"cancelled", report.Cancelled,
		"duration", report.FinishedAt.Sub(start))
	return report, err
}

func (r *Reconciler) run(ctx context.Context, opts Options, report *Report) error {
	if len(opts.DocumentIDs) > 0 {
		return r.reconcileBatch(ctx, opts, opts.DocumentIDs, report)
	}

	after := ""
	if opts.Resume {
		cursor, err := r.checkpoints.Load(ctx)
		if err != nil {
			return err
		}
		if cursor != "" {
			r.logger.Info("resuming content-type reconciliation", "after", cursor)
		}
		after = cursor
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ids, err := r.documents.ListIDs(ctx, after, opts.BatchSize)
		if err != nil {
			return fmt.Errorf("list documents: %w", err)
		}
		if len(ids) == 0 {
			break
		}
		if err := r.reconcileBatch(ctx, opts, ids, report); err != nil {
			return err
		}
		after = ids[len(ids)-1]
		if err := r.checkpoints.Save(ctx, after); err != nil {
			r.logger.Warn("failed to save reconcile checkpoint", "after", after, "error", err)
		}
		if len(ids) < opts.BatchSize {
			break
		}
	}

	if err := r.checkpoints.Clear(ctx); err != nil {
		r.logger.Warn("failed to clear reconcile checkpoint", "error", err)
	}
	return nil
}

func (r *Reconciler) reconcileBatch(ctx context.Context, opts Options, ids []string, report *Report) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for _, id := range ids {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			res, err := r.reconcileDocument(gctx, opts, id)

			mu.Lock()
			defer mu.Unlock()
			report.Documents++
			report.Objects += res.objects
			report.Updated += res.updated
			report.Errors += res.errors
			if res.updated > 0 {
				report.PerDocument[id] = res.updated
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// reconcileDocument only returns an error on cancellation.
func (r *Reconciler) reconcileDocument(ctx context.Context, opts Options, id string) (docResult, error) {
	var res docResult
	prefix := models.AttachmentPrefix(id)

	cursor := ""
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page, err := r.store.List(ctx, prefix, cursor, opts.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			r.logger.Error("failed to list attachments", "document_id", id, "error", err)
			objectsTotal.WithLabelValues(resultError).Inc()
			res.errors++
			return res, nil
		}

		for _, key := range page.Keys {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if blob.IsDirectory(key) {
				objectsTotal.WithLabelValues(resultSkipped).Inc()
				continue
			}
			res.objects++

			updated, err := r.reconcileKey(ctx, key, opts.DryRun)
			switch {
			case err != nil && ctx.Err() != nil:
				return res, ctx.Err()
			case err != nil:
				r.logger.Error("failed to reconcile attachment", "document_id", id, "key", key, "error", err)
				objectsTotal.WithLabelValues(resultError).Inc()
				res.errors++
			case updated:
				objectsTotal.WithLabelValues(resultUpdated).Inc()
				res.updated++
			default:
				objectsTotal.WithLabelValues(resultUnchanged).Inc()
			}
		}

		if page.Next == "" {
			break
		}
		cursor = page.Next
	}

	if res.updated > 0 {
		r.logger.Info("reconciled attachments", "document_id", id, "updated", res.updated, "dry_run", opts.DryRun)
	}
	return res, nil
}

func (r *Reconciler) reconcileKey(ctx context.Context, key string, dryRun bool) (bool, error) {
	info, err := r.store.Head(ctx, key)
	if err != nil {
		return false, err
	}
	// an empty object has no range to read; sniff the empty body
	var head []byte
	if info.Size > 0 {
		if head, err = r.store.GetRange(ctx, key, 0, mediatypes.SniffLen-1); err != nil {
			return false, err
		}
	}

	detected := r.sniffer.Sniff(head)
	if detected == mediatypes.Essence(info.ContentType) {
		return false, nil
	}

	r.logger.Debug("content type mismatch", "key", key, "stored", info.ContentType, "detected", detected)
	if dryRun {
		return true, nil
	}
	if err := r.store.CopyInPlace(ctx, key, detected, info.Metadata); err != nil {
		return false, err
	}
	return true, nil
}
