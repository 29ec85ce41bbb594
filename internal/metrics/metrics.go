package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Swap metrics
	SwapsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augustus_swaps_recorded_total",
			Help: "Swaps handed to storage, including replays of already stored swaps",
		},
		[]string{"module", "method"},
	)

	RewardCredits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augustus_reward_credits_total",
			Help: "Reward ledger credits applied",
		},
		[]string{"module", "kind"},
	)

	SkippedInputs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augustus_skipped_inputs_total",
			Help: "Logs and calls skipped because they could not be decoded or were malformed",
		},
		[]string{"module", "reason"},
	)

	// Progress metrics
	ModuleLastBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augustus_module_last_block",
			Help: "Last block processed by a module",
		},
		[]string{"module"},
	)

	ModuleBlocksBehind = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "augustus_module_blocks_behind",
			Help: "Blocks between a module and the latest stored block",
		},
		[]string{"module"},
	)

	ModuleAdvanceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augustus_module_advance_duration_seconds",
			Help:    "Time spent processing one block window",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"module"},
	)
)
