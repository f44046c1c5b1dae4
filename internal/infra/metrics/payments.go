package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		intentsTotal,
		paymentsRevenueTotal,
		confirmationsTotal,
		verifyDuration,
	)
}

var (
	intentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_intents_total",
			Help: "Payment intents by terminal-or-created status (pending/success/failed/cancelled).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Total minor-unit value of successfully reconciled payments, by currency.",
		},
		[]string{"currency"},
	)

	// source: checkout|deeplink|probe|reconciler
	// outcome: credited|duplicate|invalid_signature|stale|error
	confirmationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_confirmations_total",
			Help: "Confirmation deliveries by channel and outcome.",
		},
		[]string{"source", "outcome"},
	)

	verifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_verify_duration_seconds",
			Help:    "Duration of the confirmation funnel in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)
)

func IncIntent(status string) {
	intentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncConfirmation(source, outcome string) {
	confirmationsTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
}

func ObserveVerifyDuration(result string, seconds float64) {
	verifyDuration.WithLabelValues(norm(result)).Observe(seconds)
}
