package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		historyConversations,
		historyTruncationsTotal,
		chatOutcomesTotal,
	)
}

var (
	historyConversations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "history_conversations",
			Help: "Number of users with an in-memory conversation.",
		},
	)

	historyTruncationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "history_truncations_total",
			Help: "Appends that evicted the oldest non-system messages.",
		},
	)

	chatOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_outcomes_total",
			Help: "Handled text messages by outcome.",
		},
		[]string{"outcome"}, // reply | denied | failure | ignored
	)
)

func SetConversations(n int) {
	historyConversations.Set(float64(n))
}

func IncTruncation() {
	historyTruncationsTotal.Inc()
}

func IncChatOutcome(outcome string) {
	chatOutcomesTotal.WithLabelValues(norm(outcome)).Inc()
}
