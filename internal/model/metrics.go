package model

import "github.com/prometheus/client_golang/prometheus"

var modelLoaded = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "lorachat",
		Subsystem: "model",
		Name:      "loaded",
		Help:      "1 when the model handle loaded, 0 when loading failed",
	},
	[]string{"backend"},
)

func init() {
	prometheus.MustRegister(modelLoaded)
}
