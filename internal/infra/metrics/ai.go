package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiPromptEstimate,
		aiCallsLatencyMs,
		aiInflight,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per provider/model.",
		},
		[]string{"provider", "model"},
	)

	aiPromptEstimate = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_prompt_tokens_estimate",
			Help:    "Locally estimated prompt size in tokens before each call.",
			Buckets: []float64{32, 64, 128, 256, 512, 1024, 2048, 4096, 8192},
		},
		[]string{"model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "AI call latency distribution in milliseconds.",
			Buckets: []float64{10, 25, 50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000},
		},
		[]string{"provider", "model", "success"},
	)

	aiInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_calls_inflight",
			Help: "Completion calls currently waiting on a provider.",
		},
	)
)

func ObserveCompletion(provider, model string, tokensIn, tokensOut int, latency time.Duration, success bool) {
	lbl := []string{norm(provider), norm(model)}
	if tokensIn > 0 {
		aiTokensIn.WithLabelValues(lbl...).Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		aiTokensOut.WithLabelValues(lbl...).Add(float64(tokensOut))
	}
	aiCallsLatencyMs.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(float64(latency.Milliseconds()))
}

func ObservePromptEstimate(model string, tokens int) {
	aiPromptEstimate.WithLabelValues(norm(model)).Observe(float64(tokens))
}

func IncAIInflight() { aiInflight.Inc() }
func DecAIInflight() { aiInflight.Dec() }
