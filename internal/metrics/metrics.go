package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MessagesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_handled_total",
			Help: "Total inbound chat messages processed by the engine",
		},
		[]string{"outcome"},
	)
	LedgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Total ledger mutations by operation and result",
		},
		[]string{"op", "result"},
	)
	MaturationSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "maturation_sweeps_total",
			Help: "Total maturation sweep runs",
		},
	)
	InvestmentsMatured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "investments_matured_total",
			Help: "Total investments matured by the sweep",
		},
	)
	DepositPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_polls_total",
			Help: "Total deposit status poll attempts by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(MessagesHandled)
	prometheus.MustRegister(LedgerOps)
	prometheus.MustRegister(MaturationSweeps)
	prometheus.MustRegister(InvestmentsMatured)
	prometheus.MustRegister(DepositPolls)
}
