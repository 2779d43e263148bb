package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PhasesCommittedTotal tracks the total number of phases committed.
var PhasesCommittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_phases_committed_total",
		Help: "Total number of phases committed",
	},
	[]string{"component"},
)

// PhasesSkippedTotal tracks the total number of phases skipped because
// their tag was already committed.
var PhasesSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_phases_skipped_total",
		Help: "Total number of phases skipped via the ledger",
	},
	[]string{"component"},
)

// PhasesFailedTotal tracks the total number of phases that failed.
var PhasesFailedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_phases_failed_total",
		Help: "Total number of phases that failed",
	},
	[]string{"component"},
)

// RowsCopiedTotal tracks the total number of rows copied to targets.
var RowsCopiedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_rows_copied_total",
		Help: "Total rows copied to target tables",
	},
	[]string{"component", "phase"},
)

// RowsSkippedTotal tracks the total number of rows skipped due to row errors.
var RowsSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_rows_skipped_total",
		Help: "Total rows skipped due to row errors",
	},
	[]string{"component", "phase"},
)

// BatchesFlushedTotal tracks the total number of batches flushed.
var BatchesFlushedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_batches_flushed_total",
		Help: "Total batches flushed to target tables",
	},
	[]string{"component", "phase"},
)

// RollbacksTotal tracks the total number of snapshot restores performed.
var RollbacksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_rollbacks_total",
		Help: "Total snapshot restores performed",
	},
	[]string{"component"},
)

// RestoreFailuresTotal tracks restores that themselves failed. These are
// surfaced directly to the operator and never retried automatically.
var RestoreFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "schemashift_migrate_restore_failures_total",
		Help: "Total snapshot restores that failed",
	},
	[]string{"component"},
)

// PhaseDuration tracks the duration of phase execution in seconds.
var PhaseDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "schemashift_migrate_phase_duration_seconds",
		Help:    "Phase execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"component", "phase"},
)

// BatchFlushDuration tracks the duration of batch flushes in seconds.
var BatchFlushDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "schemashift_migrate_batch_flush_duration_seconds",
		Help:    "Batch flush duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"component", "phase"},
)
