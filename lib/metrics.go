package site

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/theemilyd/react-riftsurge/content"
	"github.com/theemilyd/react-riftsurge/handlers"
	"github.com/theemilyd/react-riftsurge/render"
	"github.com/theemilyd/react-riftsurge/resolver"
	"github.com/theemilyd/react-riftsurge/triemux"
)

var (
	internalServerErrorCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_internal_server_error_total",
			Help: "Number of 500 Internal Server Error responses originating from the site",
		},
		[]string{"host"},
	)

	redirectReloadCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_redirect_reload_total",
			Help: "Total number of attempts to reload the redirects",
		},
		[]string{"success"},
	)

	redirectReloadDurationMetric = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "site_redirect_reload_duration_seconds",
			Help: "Summary of redirect reload durations in seconds",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.95: 0.01,
				0.99: 0.005,
			},
		},
		[]string{"success"},
	)

	redirectReloadErrorCountMetric = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_redirect_reload_error_total",
			Help: "Number of failed attempts to reload the redirects",
		},
	)

	routesCountMetric = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "site_routes_loaded",
			Help: "Number of routes and redirects currently loaded",
		},
	)
)

func registerMetrics(r prometheus.Registerer) {
	r.MustRegister(
		internalServerErrorCountMetric,
		redirectReloadCountMetric,
		redirectReloadDurationMetric,
		redirectReloadErrorCountMetric,
		routesCountMetric,
	)
	content.RegisterMetrics(r)
	resolver.RegisterMetrics(r)
	render.RegisterMetrics(r)
	handlers.RegisterMetrics(r)
	triemux.RegisterMetrics(r)
}
