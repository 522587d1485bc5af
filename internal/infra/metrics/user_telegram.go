package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		telegramCommandsReceivedTotal,
		telegramUpdatesDroppedTotal,
		telegramSendErrorsTotal,
	)
}

var (
	telegramCommandsReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_commands_received_total",
			Help: "Counts incoming messages, commands and callbacks from users.",
		},
		[]string{"command"},
	)

	telegramUpdatesDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "telegram_updates_dropped_total",
			Help: "Updates dropped because the worker shard backlog was full.",
		},
	)

	telegramSendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telegram_send_errors_total",
			Help: "Failed outbound Telegram requests by kind.",
		},
		[]string{"kind"}, // api | markdown
	)
)

func IncTelegramCommand(command string) {
	telegramCommandsReceivedTotal.WithLabelValues(norm(command)).Inc()
}

func IncUpdateDropped() {
	telegramUpdatesDroppedTotal.Inc()
}

func IncSendError(kind string) {
	telegramSendErrorsTotal.WithLabelValues(norm(kind)).Inc()
}
