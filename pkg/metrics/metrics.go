// Package metrics provides Prometheus instrumentation for tabflow components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every tabflow metric.
const DefaultNamespace = "tabflow"

// Config holds configuration for metrics collection.
type Config struct {
	// Registry is the Prometheus registerer to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace overrides the default "tabflow" namespace.
	Namespace string

	// Labels are constant labels added to every metric.
	Labels prometheus.Labels
}

// Registry holds all metric instances for tabflow components.
type Registry struct {
	// Pipeline Metrics
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	StageDuration      *prometheus.HistogramVec
	StageRowsIn        *prometheus.CounterVec
	StageRowsOut       *prometheus.CounterVec
	StageMemoryDelta   *prometheus.GaugeVec
	ValidationFailures *prometheus.CounterVec

	// Batch Metrics
	BatchJobsSubmitted *prometheus.CounterVec
	BatchJobsCompleted *prometheus.CounterVec
	BatchActiveWorkers *prometheus.GaugeVec
	BatchQueuedJobs    *prometheus.GaugeVec

	// Trigger Metrics
	TriggerFires     *prometheus.CounterVec
	TriggerFailures  *prometheus.CounterVec
	TriggerThrottled *prometheus.CounterVec

	// Table I/O Metrics
	RowsRead    *prometheus.CounterVec
	RowsWritten *prometheus.CounterVec
	IODuration  *prometheus.HistogramVec
}

// NewRegistry creates a registry in the default namespace on reg.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg})
}

// NewRegistryWithConfig creates a registry from cfg. Registering the same
// namespace twice on one registerer panics, as with promauto.
func NewRegistryWithConfig(cfg Config) *Registry {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	factory := promauto.With(cfg.Registry)
	ns, labels := cfg.Namespace, cfg.Labels

	return &Registry{
		// Pipeline Metrics
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "runs_total",
				Help:        "Total number of pipeline runs by outcome",
				ConstLabels: labels,
			},
			[]string{"pipeline", "status"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "run_duration_seconds",
				Help:        "Wall time of complete pipeline runs",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"pipeline"},
		),

		StageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "stage_duration_seconds",
				Help:        "Time spent in stage transforms",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"pipeline", "stage"},
		),

		StageRowsIn: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "stage_rows_in_total",
				Help:        "Rows received by stage transforms",
				ConstLabels: labels,
			},
			[]string{"pipeline", "stage"},
		),

		StageRowsOut: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "stage_rows_out_total",
				Help:        "Rows produced by stage transforms",
				ConstLabels: labels,
			},
			[]string{"pipeline", "stage"},
		),

		StageMemoryDelta: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "stage_memory_delta_bytes",
				Help:        "Change in estimated table size across the last stage run",
				ConstLabels: labels,
			},
			[]string{"pipeline", "stage"},
		),

		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "pipeline",
				Name:        "validation_failures_total",
				Help:        "Failed stage validations by severity",
				ConstLabels: labels,
			},
			[]string{"pipeline", "stage", "severity"},
		),

		// Batch Metrics
		BatchJobsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "batch",
				Name:        "jobs_submitted_total",
				Help:        "Total number of jobs submitted",
				ConstLabels: labels,
			},
			[]string{"batch"},
		),

		BatchJobsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "batch",
				Name:        "jobs_completed_total",
				Help:        "Total number of jobs completed by outcome",
				ConstLabels: labels,
			},
			[]string{"batch", "status"},
		),

		BatchActiveWorkers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "batch",
				Name:        "active_workers",
				Help:        "Number of workers currently running a job",
				ConstLabels: labels,
			},
			[]string{"batch"},
		),

		BatchQueuedJobs: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "batch",
				Name:        "queued_jobs",
				Help:        "Number of jobs waiting for a worker",
				ConstLabels: labels,
			},
			[]string{"batch"},
		),

		// Trigger Metrics
		TriggerFires: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "trigger",
				Name:        "fires_total",
				Help:        "Total number of trigger firings",
				ConstLabels: labels,
			},
			[]string{"trigger", "kind"},
		),

		TriggerFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "trigger",
				Name:        "failures_total",
				Help:        "Total number of triggered jobs that returned an error",
				ConstLabels: labels,
			},
			[]string{"trigger", "kind"},
		),

		TriggerThrottled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "trigger",
				Name:        "throttled_total",
				Help:        "Total number of firings dropped by the run limit",
				ConstLabels: labels,
			},
			[]string{"trigger", "kind"},
		),

		// Table I/O Metrics
		RowsRead: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "io",
				Name:        "rows_read_total",
				Help:        "Rows read by source readers",
				ConstLabels: labels,
			},
			[]string{"format"},
		),

		RowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "io",
				Name:        "rows_written_total",
				Help:        "Rows written by sink writers",
				ConstLabels: labels,
			},
			[]string{"format"},
		),

		IODuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "io",
				Name:        "duration_seconds",
				Help:        "Time spent reading and writing tables",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: labels,
			},
			[]string{"format", "op"},
		),
	}
}
