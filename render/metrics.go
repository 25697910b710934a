package render

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	renderCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_render_total",
			Help: "Number of pages rendered, by template and query state",
		},
		[]string{
			"template",
			"state",
		},
	)

	renderFailureCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_render_failure_total",
			Help: "Number of template executions that failed",
		},
		[]string{
			"template",
		},
	)
)

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(
		renderCountMetric,
		renderFailureCountMetric,
	)
}
