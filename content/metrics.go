package content

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_content_request_total",
			Help: "Number of requests made to the content backend, by query and outcome",
		},
		[]string{
			"query",
			"outcome",
		},
	)

	requestDurationMetric = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "site_content_request_duration_seconds",
			Help: "Time taken by the content backend to answer a query",
			Buckets: []float64{
				0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 5, 10,
			},
		},
		[]string{
			"query",
		},
	)
)

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(
		requestCountMetric,
		requestDurationMetric,
	)
}
