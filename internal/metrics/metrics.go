package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Allocation
	AllocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocations_total",
			Help: "Allocation attempts by outcome",
		},
		[]string{"result"}, // ok|no_requisite|duplicate|validation|method_unavailable|error
	)
	AllocationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_conflicts_total",
			Help: "Candidates lost to a concurrent allocation",
		},
	)
	CandidatesRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_candidates_rejected_total",
			Help: "Candidates skipped by a quota gate",
		},
		[]string{"gate"},
	)

	// Lifecycle
	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "status_transitions_total",
			Help: "Committed transaction status changes",
		},
		[]string{"from", "to"},
	)
	TransactionsExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_expired_total",
			Help: "Transactions moved to EXPIRED by the watcher",
		},
	)

	// Background loops
	LoopTickFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loop_tick_failures_total",
			Help: "Failed ticks of background loops",
		},
		[]string{"loop"},
	)

	// Worker queue
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Current worker queue depth",
		},
	)

	initOnce sync.Once
)

// Handler serves /metrics.
var Handler = promhttp.Handler

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			AllocationsTotal,
			AllocationConflicts,
			CandidatesRejected,
			StatusTransitions,
			TransactionsExpired,
			LoopTickFailures,
			WorkerQueueDepth,
		)
	})
}
