package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	redirectCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_redirect_total",
			Help: "Number of permanent redirects served, by kind",
		},
		[]string{
			"redirect_type",
		},
	)

	goneCountMetric = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "site_gone_handler_response_total",
			Help: "Number of 410 Gone responses served for retired paths",
		},
	)

	mediaRequestCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_media_handler_request_total",
			Help: "Number of requests proxied to the content origin for media",
		},
		[]string{
			"request_method",
		},
	)

	mediaResponseDurationSecondsMetric = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "site_media_handler_response_duration_seconds",
			Help: "Histogram of response durations of the media proxy",
			Buckets: prometheus.ExponentialBuckets(
				0.25, 2, 6, // This buckets [...0.25  0.5  1  2  4  8...]
			),
		},
		[]string{
			"request_method",
			"response_code",
		},
	)

	pageRenderCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_page_render_total",
			Help: "Number of page renders, by route kind and fallback reason",
		},
		[]string{
			"page",
			"fallback",
		},
	)

	contactSubmissionCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_contact_submission_total",
			Help: "Number of contact form submissions, by outcome",
		},
		[]string{
			"outcome",
		},
	)
)

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(
		redirectCountMetric,
		goneCountMetric,
		mediaRequestCountMetric,
		mediaResponseDurationSecondsMetric,
		pageRenderCountMetric,
		contactSubmissionCountMetric,
	)
}
