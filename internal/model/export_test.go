package model

import "github.com/prometheus/client_golang/prometheus"

// ModelLoadedGaugeForTest exposes the loaded gauge to external tests.
func ModelLoadedGaugeForTest(backend string) prometheus.Gauge {
	return modelLoaded.WithLabelValues(backend)
}
