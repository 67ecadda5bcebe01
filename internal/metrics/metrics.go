package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Refresh Prometheus metrics.
var (
	RefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claudebar",
			Name:      "refresh_total",
			Help:      "Refresh attempts by trigger and outcome",
		},
		[]string{"trigger", "outcome"}, // outcome: "data" / "error" / "skipped"
	)

	FetchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "claudebar",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of a guarded refresh, credential lookup included",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
	)

	TokenRefreshTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "claudebar",
			Name:      "token_refresh_total",
			Help:      "Forced credential reloads after the endpoint rejected the token",
		},
	)

	Utilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "claudebar",
			Name:      "utilization_percent",
			Help:      "Last reported utilization per window",
		},
		[]string{"window"},
	)
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// Registry returns the registry holding the claudebar collectors plus the
// Go and process collectors. Collectors are registered on first call.
func Registry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			RefreshTotal,
			FetchDuration,
			TokenRefreshTotal,
			Utilization,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return registry
}
