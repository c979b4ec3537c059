package payment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_reconcile_outcomes_total",
			Help: "Reconciliation outcomes by provider",
		},
		[]string{"provider", "outcome"},
	)

	reconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_reconcile_duration_seconds",
			Help:    "Duration of reconciliation runs",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
		},
		[]string{"provider"},
	)

	webhookAuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_auth_failures_total",
			Help: "Webhook deliveries rejected before processing",
		},
		[]string{"provider"},
	)
)

// WebhookAuthFailure is recorded by the webhook handler; rejected deliveries
// never reach the engine, so the counter lives with the rest of the payment
// metrics instead.
func WebhookAuthFailure(provider string) {
	webhookAuthFailures.WithLabelValues(provider).Inc()
}
