package generate

import "github.com/prometheus/client_golang/prometheus"

var (
	tokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lorachat",
			Subsystem: "generation",
			Name:      "tokens_total",
			Help:      "Tokens processed by the generation engine",
		},
		[]string{"kind"}, // prompt, completion
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lorachat",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Duration of backend generate calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	encodeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lorachat",
			Subsystem: "generation",
			Name:      "encode_cache_total",
			Help:      "Prompt encode cache lookups",
		},
		[]string{"result"}, // hit, miss
	)
)

func init() {
	prometheus.MustRegister(tokensTotal, generationDuration, encodeCacheTotal)
}
