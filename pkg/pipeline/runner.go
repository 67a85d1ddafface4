package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/vnykmshr/tabflow/pkg/common/validation"
	"github.com/vnykmshr/tabflow/pkg/metrics"
	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/validate"
)

// StageResult is the log entry of one executed stage. Duration, MemoryDelta
// and HeapDelta cover the transform only.
type StageResult struct {
	// StageName is the name of the stage
	StageName string `json:"stage"`

	// Position is the 1-based index of the stage in the run
	Position int `json:"position"`

	RowsBefore    int `json:"rows_before"`
	RowsAfter     int `json:"rows_after"`
	ColumnsBefore int `json:"columns_before"`
	ColumnsAfter  int `json:"columns_after"`

	// Duration is how long the transform took
	Duration time.Duration `json:"duration"`

	// MemoryDelta is the change in the table's estimated size in bytes
	MemoryDelta int64 `json:"memory_delta"`

	// HeapDelta is the change in process heap allocation. Only measured
	// when Config.TrackHeap is set.
	HeapDelta int64 `json:"heap_delta,omitempty"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Warnings holds advisory validation failures
	Warnings []string `json:"warnings,omitempty"`

	// Error holds the fatal validation failure that ended the run
	Error string `json:"error,omitempty"`
}

// Run is the outcome of one Execute call. It belongs to the caller.
type Run struct {
	// Pipeline is the runner name
	Pipeline string

	// Table is the output of the last stage. Nil when the run failed.
	Table *table.Table

	// Log holds one entry per stage whose transform completed
	Log []StageResult

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Warnings returns every advisory warning of the run in stage order.
func (r *Run) Warnings() []string {
	var out []string
	for _, res := range r.Log {
		out = append(out, res.Warnings...)
	}
	return out
}

// Config holds runner configuration options.
type Config struct {
	// Name identifies the pipeline in logs, metrics and run history.
	Name string

	// Logger receives structured lifecycle records. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records Prometheus metrics when set.
	Metrics *metrics.Registry

	// TrackHeap measures process heap allocation around each transform.
	// It stops the world twice per stage.
	TrackHeap bool

	// OnRunStart is called before the first stage.
	OnRunStart func(pipeline string, initial *table.Table)

	// OnStageStart is called before a stage's transform.
	OnStageStart func(stage string, position int, input *table.Table)

	// OnStageComplete is called with the finished log entry of a stage.
	OnStageComplete func(result StageResult)

	// OnValidationFailure is called when a stage's rule fails.
	OnValidationFailure func(result StageResult, err error, fatal bool)

	// OnRunComplete is called once per run, with the run error if any.
	OnRunComplete func(run *Run, err error)
}

// Runner applies stages to tables. A runner keeps no per-run state, so
// Execute may be called from several goroutines at once.
type Runner struct {
	config Config
	logger *slog.Logger

	mu    sync.RWMutex
	stats Stats
}

// New creates a runner with default configuration.
func New() *Runner {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a runner with the specified configuration.
func NewWithConfig(config Config) *Runner {
	if config.Name == "" {
		config.Name = "pipeline"
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config: config,
		logger: logger.With("pipeline", config.Name),
		stats: Stats{
			StageStats: make(map[string]StageStats),
		},
	}
}

// Name returns the pipeline name used in logs and metrics.
func (r *Runner) Name() string { return r.config.Name }

// Execute applies stages to initial in order and stops at the first
// transform error or fatal validation failure.
//
// A malformed definition (nil table, no stages, unnamed or duplicate
// stages, nil transform) returns a ConfigurationError before any stage
// runs. Otherwise the returned Run carries the stage log on success and on
// failure; a failure is returned as a *PipelineError.
func (r *Runner) Execute(ctx context.Context, initial *table.Table, stages []Stage) (*Run, error) {
	if err := checkDefinition(initial, stages); err != nil {
		return nil, err
	}

	run := &Run{
		Pipeline:  r.config.Name,
		StartTime: time.Now(),
		Log:       make([]StageResult, 0, len(stages)),
	}

	r.logger.Info("pipeline started",
		"stages", len(stages),
		"rows", initial.NumRows(),
		"columns", initial.NumColumns())
	if r.config.OnRunStart != nil {
		r.config.OnRunStart(r.config.Name, initial)
	}

	current := initial
	var runErr error
	for i, stage := range stages {
		position := i + 1

		if err := ctx.Err(); err != nil {
			runErr = &PipelineError{Stage: stage.name, Position: position, Cause: err}
			break
		}

		next, result, err := r.executeStage(ctx, stage, position, current)
		if result != nil {
			run.Log = append(run.Log, *result)
		}
		if err != nil {
			runErr = err
			break
		}
		current = next
	}

	run.EndTime = time.Now()
	run.Duration = run.EndTime.Sub(run.StartTime)
	if runErr == nil {
		run.Table = current
	}

	r.finishRun(run, runErr)
	return run, runErr
}

// executeStage runs one transform and its validation. It returns a nil
// result when the transform did not complete.
func (r *Runner) executeStage(ctx context.Context, stage Stage, position int, input *table.Table) (*table.Table, *StageResult, error) {
	logger := r.logger.With("stage", stage.name, "position", position)

	if r.config.OnStageStart != nil {
		r.config.OnStageStart(stage.name, position, input)
	}

	var before runtime.MemStats
	if r.config.TrackHeap {
		runtime.ReadMemStats(&before)
	}
	memBefore := input.MemoryUsage()
	startTime := time.Now()

	output, err := r.transform(ctx, stage, input)

	endTime := time.Now()
	if err != nil {
		logger.Error("stage transform failed", "error", err)
		r.recordStage(stage.name, endTime.Sub(startTime), input.NumRows(), 0, stageFailed)
		return nil, nil, &PipelineError{Stage: stage.name, Position: position, Cause: err}
	}

	result := &StageResult{
		StageName:     stage.name,
		Position:      position,
		RowsBefore:    input.NumRows(),
		RowsAfter:     output.NumRows(),
		ColumnsBefore: input.NumColumns(),
		ColumnsAfter:  output.NumColumns(),
		Duration:      endTime.Sub(startTime),
		MemoryDelta:   output.MemoryUsage() - memBefore,
		StartTime:     startTime,
		EndTime:       endTime,
	}
	if r.config.TrackHeap {
		var after runtime.MemStats
		runtime.ReadMemStats(&after)
		result.HeapDelta = int64(after.HeapAlloc) - int64(before.HeapAlloc)
	}

	outcome := stageSucceeded
	var stageErr error
	if stage.rule != nil {
		if verr := stage.rule.Check(output); verr != nil {
			if stage.fatal {
				outcome = stageFailed
				result.Error = verr.Error()
				stageErr = &PipelineError{Stage: stage.name, Position: position, Cause: verr, Table: output}
				logger.Error("stage validation failed", "rule", stage.rule.Name(), "error", verr)
			} else {
				outcome = stageWarned
				result.Warnings = warnings(verr)
				logger.Warn("stage validation failed", "rule", stage.rule.Name(), "error", verr)
			}
			r.observeValidationFailure(stage)
			if r.config.OnValidationFailure != nil {
				r.config.OnValidationFailure(*result, verr, stage.fatal)
			}
		}
	}

	logger.Info("stage completed",
		"rows_before", result.RowsBefore,
		"rows_after", result.RowsAfter,
		"columns_after", result.ColumnsAfter,
		"duration", result.Duration,
		"memory_delta", result.MemoryDelta)

	r.recordStage(stage.name, result.Duration, result.RowsBefore, result.RowsAfter, outcome)
	r.observeStage(*result)
	if r.config.OnStageComplete != nil {
		r.config.OnStageComplete(*result)
	}

	if stageErr != nil {
		return nil, result, stageErr
	}
	return output, result, nil
}

// transform calls the stage function and converts a panic into an error.
func (r *Runner) transform(ctx context.Context, stage Stage, input *table.Table) (output *table.Table, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("stage panicked",
				"stage", stage.name,
				"panic", p,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	output, err = stage.transform(ctx, input)
	if err == nil && output == nil {
		err = errors.New("transform returned a nil table")
	}
	return output, err
}

func (r *Runner) finishRun(run *Run, err error) {
	r.updateStats(run, err)
	r.observeRun(run, err)

	if err != nil {
		r.logger.Error("pipeline failed",
			"stages_completed", len(run.Log),
			"duration", run.Duration,
			"error", err)
	} else {
		r.logger.Info("pipeline completed",
			"stages_completed", len(run.Log),
			"rows", run.Table.NumRows(),
			"columns", run.Table.NumColumns(),
			"duration", run.Duration,
			"warnings", len(run.Warnings()))
	}

	if r.config.OnRunComplete != nil {
		r.config.OnRunComplete(run, err)
	}
}

func warnings(err error) []string {
	failures := validate.Failures(err)
	if len(failures) == 0 {
		return []string{err.Error()}
	}
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.Error()
	}
	return out
}

func checkDefinition(initial *table.Table, stages []Stage) error {
	if initial == nil {
		return configError("table", nil, "cannot be nil").
			WithHint("pass the table read from the source")
	}
	if len(stages) == 0 {
		return configError("stages", 0, "must not be empty").
			WithHint("add at least one stage")
	}
	names := make([]string, len(stages))
	for i, s := range stages {
		if s.name == "" {
			return configError("stage.name", i+1, "cannot be empty")
		}
		if s.transform == nil {
			return configError("stage.transform", s.name, "cannot be nil").
				WithHint("build stages with pipeline.NewStage")
		}
		names[i] = s.name
	}
	return validation.ValidateUnique("pipeline", "stage", names)
}

func (r *Runner) observeStage(res StageResult) {
	m := r.config.Metrics
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(r.config.Name, res.StageName).Observe(res.Duration.Seconds())
	m.StageRowsIn.WithLabelValues(r.config.Name, res.StageName).Add(float64(res.RowsBefore))
	m.StageRowsOut.WithLabelValues(r.config.Name, res.StageName).Add(float64(res.RowsAfter))
	m.StageMemoryDelta.WithLabelValues(r.config.Name, res.StageName).Set(float64(res.MemoryDelta))
}

func (r *Runner) observeValidationFailure(stage Stage) {
	if m := r.config.Metrics; m != nil {
		m.ValidationFailures.WithLabelValues(r.config.Name, stage.name, stage.Severity()).Inc()
	}
}

func (r *Runner) observeRun(run *Run, err error) {
	m := r.config.Metrics
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.RunsTotal.WithLabelValues(r.config.Name, status).Inc()
	m.RunDuration.WithLabelValues(r.config.Name).Observe(run.Duration.Seconds())
}
