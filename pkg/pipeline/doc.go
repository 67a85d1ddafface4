/*
Package pipeline runs a table through an ordered list of named stages.

Each stage applies a transform to the output of the previous stage and may
check the result against a validation rule. A run stops at the first
transform error or at the first failed rule of a fatal stage. A failed rule
on an advisory stage is recorded as a warning and the run continues.

# Basic Usage

	runner := pipeline.NewWithConfig(pipeline.Config{Name: "orders"})

	stages := []pipeline.Stage{
		pipeline.NewStage("drop_incomplete", func(ctx context.Context, t *table.Table) (*table.Table, error) {
			return t.DropNulls("customer")
		}),
		pipeline.NewStage("dedupe", dedupe,
			pipeline.WithValidation(validate.Uniqueness("order_id"))),
		pipeline.NewStage("check_amounts", identity,
			pipeline.WithValidation(validate.Range("amount", 0, 10000)),
			pipeline.Advisory()),
	}

	run, err := runner.Execute(ctx, input, stages)

# Results

Execute returns a Run whose Log holds one StageResult for every stage whose
transform completed: row and column counts before and after, the
transform duration and the change in the table's estimated memory
footprint. Set Config.TrackHeap to also record the process heap delta.

On success Run.Table is the final table. On failure the error is a
*PipelineError naming the stage and its 1-based position; when the cause is
a fatal validation failure the error also carries the rejected table:

	var perr *pipeline.PipelineError
	if errors.As(err, &perr) && perr.Table != nil {
		quarantine(perr.Table)
	}

A malformed definition (no stages, an unnamed or duplicate stage, a nil
transform or a nil input table) is rejected with a
*errors.ConfigurationError before any stage runs.

# Observability

The runner logs run and stage lifecycle records through log/slog, keeps
aggregate Stats, calls the optional Config hooks and records Prometheus
metrics when Config.Metrics is set.

# Thread Safety

Stages and tables are immutable, and a Runner keeps no per-run state, so
one Runner may execute several pipelines concurrently.
*/
package pipeline
