package queryclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	completionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "query_probe_completions_total",
			Help: "Completed requests by outcome",
		},
		[]string{"outcome"},
	)

	entryErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "query_probe_entry_errors_total",
			Help: "Response entries skipped because metrics could not be extracted",
		},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_probe_request_duration_seconds",
			Help:    "Time from submit to completion",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	inFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "query_probe_requests_in_flight",
			Help: "Submitted requests that have not completed",
		},
	)
)

func observe(out Outcome) {
	kind := string(out.Kind)
	completionsTotal.WithLabelValues(kind).Inc()
	requestDuration.WithLabelValues(kind).Observe(out.Elapsed.Seconds())
	if n := len(out.EntryErrors); n > 0 {
		entryErrorsTotal.Add(float64(n))
	}
}
