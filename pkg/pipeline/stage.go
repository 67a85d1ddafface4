package pipeline

import (
	"context"

	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/validate"
)

// TransformFunc turns one table into another. Implementations must not
// modify their input.
type TransformFunc func(ctx context.Context, t *table.Table) (*table.Table, error)

// Stage is one named step of a pipeline: a transform and an optional
// validation rule. A fatal stage aborts the run when its validation fails;
// an advisory stage records the failure as a warning and the run goes on.
//
// Stages are immutable once built with NewStage.
type Stage struct {
	name      string
	transform TransformFunc
	rule      validate.Rule
	fatal     bool
}

// StageOption configures a Stage.
type StageOption func(*Stage)

// WithValidation attaches a rule checked against the stage output.
// Combine several rules with validate.All.
func WithValidation(rule validate.Rule) StageOption {
	return func(s *Stage) {
		s.rule = rule
	}
}

// Advisory marks the stage's validation as non-fatal.
func Advisory() StageOption {
	return func(s *Stage) {
		s.fatal = false
	}
}

// Fatal sets whether a failed validation aborts the run. Stages are fatal
// unless configured otherwise.
func Fatal(fatal bool) StageOption {
	return func(s *Stage) {
		s.fatal = fatal
	}
}

// NewStage creates a fatal stage with no validation unless options say
// otherwise.
func NewStage(name string, transform TransformFunc, opts ...StageOption) Stage {
	s := Stage{name: name, transform: transform, fatal: true}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Name returns the stage name.
func (s Stage) Name() string { return s.name }

// Rule returns the validation rule, or nil.
func (s Stage) Rule() validate.Rule { return s.rule }

// IsFatal reports whether a failed validation aborts the run.
func (s Stage) IsFatal() bool { return s.fatal }

// Severity returns "fatal" or "advisory".
func (s Stage) Severity() string {
	if s.fatal {
		return "fatal"
	}
	return "advisory"
}
