package services

import "github.com/prometheus/client_golang/prometheus"

// Refresh outcomes used as the "outcome" label.
const (
	outcomeSuccess  = "success"
	outcomeUpstream = "upstream_error"
	outcomeFailure  = "db_error"
	outcomeReplay   = "replay"
)

var (
	// refreshTotal counts refresh attempts by outcome.
	refreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "country_refresh_total",
			Help: "Total number of country refresh attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// refreshDuration records end-to-end duration of refreshes that reached
	// the upstream APIs.
	refreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "country_refresh_duration_seconds",
			Help:    "Duration of country refreshes in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	// refreshRecords reports how many rows the last successful refresh upserted.
	refreshRecords = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "country_refresh_records",
			Help: "Number of country records upserted by the last successful refresh.",
		},
	)
)

func init() {
	prometheus.MustRegister(refreshTotal, refreshDuration, refreshRecords)
}
