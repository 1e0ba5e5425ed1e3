package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Admission Metrics
	TransactionsAdmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Subsystem: "ledger",
			Name:      "transactions_admitted_total",
			Help:      "Total number of transactions admitted to the pending queue, labeled by kind.",
		},
		[]string{"kind"},
	)

	TransactionsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Subsystem: "ledger",
			Name:      "transactions_rejected_total",
			Help:      "Total number of transactions rejected before admission, labeled by stage (shape, validation, compliance).",
		},
		[]string{"stage"},
	)

	PendingDepthGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finledger",
			Subsystem: "ledger",
			Name:      "pending_transactions_count",
			Help:      "Current number of transactions waiting to be sealed into a block.",
		},
	)

	// Sealing Metrics
	BlocksSealed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Subsystem: "ledger",
			Name:      "blocks_sealed_total",
			Help:      "Total number of blocks sealed and appended to the chain.",
		},
	)

	MiningDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "finledger",
			Subsystem: "ledger",
			Name:      "mining_duration_seconds",
			Help:      "Histogram of proof-of-work durations per sealed block.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ChainHeightGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "finledger",
			Subsystem: "ledger",
			Name:      "chain_height",
			Help:      "Current number of blocks in the chain.",
		},
	)

	// Contract Metrics
	ContractTransactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finledger",
			Subsystem: "contracts",
			Name:      "contract_transactions_total",
			Help:      "Total number of transactions generated by automated contracts, labeled by contract.",
		},
		[]string{"contract"},
	)
)

// Handler returns the HTTP handler serving the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
