package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"docforest/internal/blob"
	"docforest/internal/mediatypes"
	"docforest/internal/reconcile"
	"docforest/internal/repository"
)

type reconcileFlags struct {
	resume      bool
	concurrency int
	dryRun      bool
	documents   []string
}

func newReconcileCmd(a *app) *cobra.Command {
	var f reconcileFlags

	cmd := &cobra.Command{
		Use:   "reconcile-content-types",
		Short: "Rewrite attachment Content-Types that disagree with their bytes",
		Long: `Walks every document's attachment prefix in the blob store, sniffs the
first bytes of each object and rewrites its Content-Type in place when it is
wrong. Per-object failures are counted in the report and do not fail the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, a, f)
		},
	}

	cmd.Flags().BoolVar(&f.resume, "resume", false, "continue after the last checkpointed document (needs REDIS_URL)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 0, "documents reconciled in parallel (default RECONCILE_CONCURRENCY)")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "report what would change without rewriting anything")
	cmd.Flags().StringSliceVar(&f.documents, "document", nil, "restrict the run to these document ids (repeatable)")
	return cmd
}

func runReconcile(cmd *cobra.Command, a *app, f reconcileFlags) error {
	cfg := a.cfg
	if err := cfg.ValidateBlobStore(); err != nil {
		return err
	}
	if err := a.requireDatabase(); err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := blob.NewS3Store(ctx, blob.S3Config{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, a.logger)
	if err != nil {
		return err
	}

	stores, err := repository.Open(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	types, err := mediatypes.Load()
	if err != nil {
		return err
	}

	var checkpoints reconcile.Checkpoints = reconcile.NoopCheckpoints{}
	if cfg.RedisURL != "" {
		rc, err := reconcile.NewRedisCheckpoints(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		checkpoints = rc
	} else if f.resume {
		a.logger.Warn("--resume without REDIS_URL starts from the beginning")
	}

	concurrency := f.concurrency
	if concurrency <= 0 {
		concurrency = cfg.ReconcileConcurrency
	}

	report, err := reconcile.New(reconcile.Config{
		Store:       store,
		Documents:   stores.Documents,
		Sniffer:     types,
		Checkpoints: checkpoints,
		Logger:      a.logger,
	}).Run(ctx, reconcile.Options{
		Concurrency: concurrency,
		PageSize:    cfg.ReconcilePageSize,
		DryRun:      f.dryRun,
		Resume:      f.resume,
		DocumentIDs: f.documents,
	})

	if report != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	}

	// an interrupted run is resumable and not a failure
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
