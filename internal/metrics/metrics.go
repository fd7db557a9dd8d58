package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process outcomes used as the "outcome" label.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeTimeout     = "timeout"
	OutcomeCancelled   = "cancelled"
	OutcomeMissingFile = "missing_file"
)

// Gauges
var (
	ActiveVisitors = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "binaural_active_visitors",
		Help: "Number of visitors holding an upload form",
	})
	RequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "binaural_process_requests_in_flight",
		Help: "Number of processing requests currently awaiting the service",
	})
)

// Counters
var (
	VisitorsRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binaural_visitors_rejected_total",
		Help: "Visitors rejected due to capacity limit",
	})
	VisitorsEvictedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binaural_visitors_evicted_total",
		Help: "Visitors forgotten by the registry, by reason",
	}, []string{"reason"})
	ProcessTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "binaural_process_total",
		Help: "Total processing triggers by outcome",
	}, []string{"outcome"})
	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "binaural_upload_bytes_total",
		Help: "Total audio bytes sent to the processing service",
	})
)

// Histograms
var (
	ProcessLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "binaural_process_duration_ms",
		Help:    "Processing round trip duration in milliseconds",
		Buckets: []float64{250, 500, 1000, 2500, 5000, 10000, 30000, 60000, 120000},
	})
)
