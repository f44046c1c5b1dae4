package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		generationsTotal,
		generationLatencyMs,
		aiTokensTotal,
		quotaBlocksTotal,
	)
}

var (
	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generations_total",
			Help: "Caption generations by provider and success.",
		},
		[]string{"provider", "success"},
	)

	generationLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_latency_ms",
			Help:    "Model call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000},
		},
		[]string{"provider"},
	)

	aiTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Sum of total tokens per provider.",
		},
		[]string{"provider"},
	)

	quotaBlocksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_blocks_total",
			Help: "Anonymous generations blocked by the free-trial quota.",
		},
	)
)

func IncGeneration(provider string, success bool) {
	s := "false"
	if success {
		s = "true"
	}
	generationsTotal.WithLabelValues(norm(provider), s).Inc()
}

func ObserveGenerationLatency(provider string, ms float64) {
	generationLatencyMs.WithLabelValues(norm(provider)).Observe(ms)
}

func AddAITokens(provider string, n int) {
	aiTokensTotal.WithLabelValues(norm(provider)).Add(float64(n))
}

func IncQuotaBlocked() { quotaBlocksTotal.Inc() }
