package services

import (
	"errors"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	editTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landmap_edits_total",
		Help: "Feature edits by operation, category and result",
	}, []string{"operation", "category", "result"})

	rejectionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landmap_rejections_total",
		Help: "Rejected feature submissions by reason",
	}, []string{"reason"})

	cascadeChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landmap_cascade_changes_total",
		Help: "Lower-precedence features clipped or removed by native vegetation edits",
	}, []string{"kind"})

	kernelFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "landmap_kernel_failures_total",
		Help: "Geometry kernel failures by operation",
	}, []string{"op"})

	editDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "landmap_edit_duration_seconds",
		Help:    "Time to validate, apply and persist one edit",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	openSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "landmap_open_sessions",
		Help: "Property sessions held in memory",
	})
)

// observeError 记录内核错误
func observeError(err error) {
	var f *geokernel.Failure
	if errors.As(err, &f) {
		kernelFailures.WithLabelValues(f.Op).Inc()
	}
}
