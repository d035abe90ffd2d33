package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lorachat",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by terminal outcome",
		},
		[]string{"outcome"},
	)

	queueLength = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lorachat",
		Subsystem: "chat",
		Name:      "queue_length",
		Help:      "Admitted chat requests, waiting or running",
	})

	inflightGenerations = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "lorachat",
		Subsystem: "chat",
		Name:      "inflight_generations",
		Help:      "Generations currently running",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, queueLength, inflightGenerations)
}

// outcomeOf classifies err for the requests_total outcome label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsValidation(err):
		return "validation"
	case IsModelUnavailable(err):
		return "unavailable"
	case IsTooBusy(err):
		return "busy"
	case IsGeneration(err):
		return "generation"
	default:
		return "canceled"
	}
}
