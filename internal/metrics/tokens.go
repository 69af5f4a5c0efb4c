package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(tokenRefreshTotal, sessionsIssuedTotal) }

var tokenRefreshTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "echo_token_refresh_total",
		Help: "Refresh token rotations by result (ok, expired, unknown, rate_limited, error).",
	},
	[]string{"result"},
)

var sessionsIssuedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "echo_sessions_issued_total",
		Help: "New token lineages issued.",
	},
)

func IncTokenRefresh(result string) { tokenRefreshTotal.WithLabelValues(norm(result)).Inc() }

func IncSessionIssued() { sessionsIssuedTotal.Inc() }
