package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		creditsGrantedTotal,
		creditsConsumedTotal,
		creditDenialsTotal,
	)
}

var (
	creditsGrantedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_granted_total",
			Help: "Credits added to ledgers by payment reconciliation.",
		},
	)

	creditsConsumedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credits_consumed_total",
			Help: "Credits consumed by generations.",
		},
	)

	creditDenialsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_denials_total",
			Help: "Generations rejected for insufficient credits.",
		},
	)
)

func AddCreditsGranted(n int64) { creditsGrantedTotal.Add(float64(n)) }
func IncCreditConsumed()       { creditsConsumedTotal.Inc() }
func IncCreditDenied()         { creditDenialsTotal.Inc() }
