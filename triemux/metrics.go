package triemux

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	entryNotFoundCountMetric = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_triemux_entry_not_found_total",
			Help: "Number of triemux lookups for which an entry was not found",
		},
	)
)

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(
		entryNotFoundCountMetric,
	)
}
