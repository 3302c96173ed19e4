package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enhancementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_enhancements_total",
		Help: "Number of fingerprint images run through the enhancement pipeline, by result.",
	}, []string{"result"})

	enhancementDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fingerprint_enhancement_duration_seconds",
		Help:    "Time spent enhancing a single fingerprint image, cache hits excluded.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_enhancement_cache_lookups_total",
		Help: "Enhancement cache lookups, by result (hit, miss, error).",
	}, []string{"result"})

	studentRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fingerprint_student_records",
		Help: "Number of student records currently held.",
	})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_spreadsheet_exports_total",
		Help: "Spreadsheet exports, by result.",
	}, []string{"result"})
)

func resultLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}
