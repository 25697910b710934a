package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	outcomeCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_resolver_outcome_total",
			Help: "Number of settled content queries, by query and state",
		},
		[]string{
			"query",
			"state",
		},
	)

	memoHitCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_resolver_memo_hits_total",
			Help: "Number of content queries answered from the stale-time memo",
		},
		[]string{
			"query",
		},
	)

	staleDiscardedCountMetric = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_stale_response_discarded_total",
			Help: "Number of content responses that arrived after their page was left",
		},
		[]string{
			"query",
		},
	)
)

func RegisterMetrics(r prometheus.Registerer) {
	r.MustRegister(
		outcomeCountMetric,
		memoHitCountMetric,
		staleDiscardedCountMetric,
	)
}
