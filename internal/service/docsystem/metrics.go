package docsystem

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var forestWriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "docforest_forest_write_duration_seconds",
	Help:    "Latency of forest writes that place documents.",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
}, []string{"op", "result"})

func observeWrite(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	forestWriteDuration.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
