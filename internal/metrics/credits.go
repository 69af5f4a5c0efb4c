package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(grantRedemptionsTotal, creditMintsTotal) }

var grantRedemptionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "echo_grant_redemptions_total",
		Help: "Grant redemption attempts by result (ok, already_redeemed, inactive, not_found, error).",
	},
	[]string{"result"},
)

var creditMintsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "echo_credit_mints_total",
		Help: "Credit mints by source.",
	},
	[]string{"source"},
)

func IncGrantRedemption(result string) { grantRedemptionsTotal.WithLabelValues(norm(result)).Inc() }

func IncCreditMint(source string) { creditMintsTotal.WithLabelValues(norm(source)).Inc() }
