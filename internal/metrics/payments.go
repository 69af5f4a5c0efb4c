package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(paymentAuthTotal, transactionsTotal, transactionReplaysTotal) }

// Payment authentication outcomes.
const (
	AuthAuthenticated   = "authenticated"
	AuthUnknownApp      = "unknown_app"
	AuthUnauthenticated = "unauthenticated"
)

var paymentAuthTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "echo_payment_auth_total",
		Help: "Payment request authentications by outcome.",
	},
	[]string{"result"},
)

var transactionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "echo_transactions_total",
		Help: "Ledger transactions recorded per provider.",
	},
	[]string{"provider"},
)

var transactionReplaysTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "echo_transaction_replays_total",
		Help: "Transaction writes answered from an existing idempotency key.",
	},
)

func IncPaymentAuth(result string) { paymentAuthTotal.WithLabelValues(norm(result)).Inc() }

func IncTransaction(provider string) { transactionsTotal.WithLabelValues(norm(provider)).Inc() }

func IncTransactionReplay() { transactionReplaysTotal.Inc() }
