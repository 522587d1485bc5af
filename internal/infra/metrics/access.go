package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(accessChecksTotal) }

var accessChecksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "access_checks_total",
		Help: "Channel membership checks by outcome.",
	},
	[]string{"result"}, // member | not_member | lookup_error
)

func IncAccessCheck(result string) {
	accessChecksTotal.WithLabelValues(norm(result)).Inc()
}
