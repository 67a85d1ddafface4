// Package metrics provides Prometheus instrumentation for tabflow components.
//
// Components accept an optional *Registry. A nil registry disables
// instrumentation.
//
// # Quick Start
//
//	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)
//
//	runner := pipeline.NewWithConfig(pipeline.Config{
//		Name:    "orders",
//		Metrics: reg,
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":9090", nil))
//
// # Custom Registry
//
// Use a separate Prometheus registry for isolation, for example in tests:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.NewRegistryWithConfig(metrics.Config{
//		Registry:  reg,
//		Namespace: "etl",
//		Labels:    prometheus.Labels{"env": "staging"},
//	})
//
// # Available Metrics
//
// ## Pipeline Metrics
//
//   - tabflow_pipeline_runs_total: Runs by pipeline and status (success, failed)
//   - tabflow_pipeline_run_duration_seconds: Wall time of complete runs
//   - tabflow_pipeline_stage_duration_seconds: Time spent in stage transforms
//   - tabflow_pipeline_stage_rows_in_total: Rows received by stages
//   - tabflow_pipeline_stage_rows_out_total: Rows produced by stages
//   - tabflow_pipeline_stage_memory_delta_bytes: Table size change of the last stage run
//   - tabflow_pipeline_validation_failures_total: Failed validations by severity (fatal, advisory)
//
// ## Batch Metrics
//
//   - tabflow_batch_jobs_submitted_total: Jobs submitted
//   - tabflow_batch_jobs_completed_total: Jobs completed by status
//   - tabflow_batch_active_workers: Workers currently running a job
//   - tabflow_batch_queued_jobs: Jobs waiting for a worker
//
// ## Trigger Metrics
//
//   - tabflow_trigger_fires_total: Trigger firings by trigger and kind (cron, watch)
//   - tabflow_trigger_failures_total: Triggered jobs that returned an error
//
// ## Table I/O Metrics
//
//   - tabflow_io_rows_read_total: Rows read by format
//   - tabflow_io_rows_written_total: Rows written by format
//   - tabflow_io_duration_seconds: Read and write latency by format and op
package metrics
