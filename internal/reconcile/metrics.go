package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// objectsTotal counts examined attachment objects by outcome
	objectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docforest_reconcile_objects_total",
		Help: "Attachment objects examined by the content-type reconciler, by result",
	}, []string{"result"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docforest_reconcile_runs_total",
		Help: "Content-type reconciler runs by result",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docforest_reconcile_run_duration_seconds",
		Help:    "Content-type reconciler run duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 8), // 100ms to ~27min
	})
)

const (
	resultUpdated   = "updated"
	resultUnchanged = "unchanged"
	resultSkipped   = "skipped"
	resultError     = "error"
)
