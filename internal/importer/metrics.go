package importer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsProcessed counts rows by outcome: new, modified or failed.
	RowsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "importer_rows_total",
			Help: "Total number of imported rows by outcome",
		},
		[]string{"outcome"},
	)

	// BatchesProcessed counts batches run through the pipeline.
	BatchesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "importer_batches_total",
			Help: "Total number of import batches processed",
		},
	)

	// StageDuration observes the duration of one stage of one batch.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "importer_stage_duration_seconds",
			Help:    "Duration of import batch stages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// StageErrors counts stages that failed as a whole.
	StageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "importer_stage_errors_total",
			Help: "Total number of failed import batch stages",
		},
		[]string{"stage"},
	)

	// Runs counts finished import runs by status: completed, aborted or failed.
	Runs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "importer_runs_total",
			Help: "Total number of import runs by final status",
		},
		[]string{"status"},
	)
)
