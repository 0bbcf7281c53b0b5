package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	degradedMode = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewdesk_degraded_mode",
			Help: "1 while reviews are served from the local fallback set, else 0",
		},
	)

	fallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewdesk_fallback_total",
			Help: "Operations served locally because the review service failed",
		},
		[]string{"operation"},
	)

	staleRefreshTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewdesk_stale_refresh_discarded_total",
			Help: "Refresh results discarded because a newer state was already committed",
		},
	)

	duplicateReviewsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewdesk_duplicate_reviews_dropped_total",
			Help: "Fetched reviews dropped because the same user had a newer one",
		},
	)
)
