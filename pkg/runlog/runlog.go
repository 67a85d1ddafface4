// Package runlog records summaries of finished pipeline runs.
package runlog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/vnykmshr/tabflow/pkg/pipeline"
)

// ErrNotFound is returned when a run id is not in the store.
var ErrNotFound = errors.New("run not found")

// Status of a recorded run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Summary is the persisted form of a pipeline run.
type Summary struct {
	ID        uuid.UUID     `json:"id"`
	Pipeline  string        `json:"pipeline"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Status    Status        `json:"status"`

	// Rows and Columns describe the final table. Both are zero for failed runs.
	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	Stages []pipeline.StageResult `json:"stages"`

	// FailedStage and Error are set when the run did not complete.
	FailedStage string `json:"failed_stage,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Summarize builds a Summary with a fresh id from a run and the error
// Execute returned with it.
func Summarize(run *pipeline.Run, err error) Summary {
	s := Summary{
		ID:     uuid.New(),
		Status: StatusSuccess,
	}
	if run != nil {
		s.Pipeline = run.Pipeline
		s.StartedAt = run.StartTime
		s.Duration = run.Duration
		s.Stages = append([]pipeline.StageResult(nil), run.Log...)
		if run.Table != nil {
			s.Rows = run.Table.NumRows()
			s.Columns = run.Table.NumColumns()
		}
	}
	if err != nil {
		s.Status = StatusFailed
		s.Error = err.Error()
		var perr *pipeline.PipelineError
		if errors.As(err, &perr) {
			s.FailedStage = perr.Stage
		}
	}
	return s
}

// Warnings collects the advisory messages of every stage.
func (s Summary) Warnings() []string {
	var out []string
	for _, st := range s.Stages {
		out = append(out, st.Warnings...)
	}
	return out
}

// Encode returns the JSON form used by persistent stores.
func (s Summary) Encode() ([]byte, error) {
	return sonic.Marshal(s)
}

// Decode parses a summary produced by Encode.
func Decode(data []byte) (Summary, error) {
	var s Summary
	err := sonic.Unmarshal(data, &s)
	return s, err
}

// Store persists run summaries.
type Store interface {
	// Save records s, replacing any summary with the same id.
	Save(ctx context.Context, s Summary) error

	// Get returns the summary with the given id or ErrNotFound.
	Get(ctx context.Context, id uuid.UUID) (Summary, error)

	// Recent returns up to n summaries for pipeline, newest first. An empty
	// pipeline name matches every run.
	Recent(ctx context.Context, pipeline string, n int) ([]Summary, error)

	// Close releases resources held by the store.
	Close() error
}

// Recorder returns a function suitable for pipeline.Config.OnRunComplete
// that saves every finished run to store. Save failures are logged and
// never affect the run.
func Recorder(store Store, timeout time.Duration, logger *slog.Logger) func(*pipeline.Run, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return func(run *pipeline.Run, err error) {
		s := Summarize(run, err)
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if serr := store.Save(ctx, s); serr != nil {
			logger.Warn("run summary not saved",
				"pipeline", s.Pipeline,
				"run_id", s.ID,
				"error", serr)
			return
		}
		logger.Debug("run summary saved", "pipeline", s.Pipeline, "run_id", s.ID)
	}
}
