/*
Package tabflow runs staged ETL pipelines over in-memory tables.

A pipeline reads a source, applies an ordered list of stages and writes
the result to a sink. Each stage is a transform with an optional
validation rule. A fatal rule that fails stops the run at that stage. An
advisory rule records a warning and the run continues. Every stage is
logged with row and column counts, duration and memory change.

Core (pkg):
  - table: typed, immutable columnar tables with filter, sort, join and group-by
  - pipeline: the fail-fast stage runner and its per-stage log
  - transform: reusable stage transforms and a registry keyed by name
  - validate: completeness, uniqueness, range, type, pattern and set rules
  - quality: completeness, duplication and type reports, and a quality gate
  - tableio: csv, json, parquet, SQL and MongoDB readers and writers

Operations (pkg):
  - batch: run many independent pipelines on a bounded worker pool
  - trigger: cron schedules and debounced file watches that start runs
  - runlog: run summaries kept in memory or in Redis
  - metrics: Prometheus collectors for runs, stages, batches, triggers and I/O

The tabflow command (cmd/tabflow) loads YAML, JSON or TOML pipeline
definitions and exposes run, report, check, watch and history.

Example usage:

	import (
		"github.com/vnykmshr/tabflow/pkg/pipeline"
		"github.com/vnykmshr/tabflow/pkg/transform"
		"github.com/vnykmshr/tabflow/pkg/validate"
	)

	stages := []pipeline.Stage{
		pipeline.NewStage("clean", transform.DropNulls("customer")),
		pipeline.NewStage("dedupe", transform.DropDuplicates(),
			pipeline.WithValidation(validate.Uniqueness("order_id"))),
	}
	run, err := pipeline.New().Execute(ctx, orders, stages)
*/
package tabflow
