package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/quality"
	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/transform"
	"github.com/vnykmshr/tabflow/pkg/validate"
)

// QualityStageName names the gate stage appended when quality is enabled.
const QualityStageName = "quality_gate"

// BuildStages turns the declared stages into pipeline stages using the
// transform and validate registries. Every stage is attempted so that all
// unknown kinds and bad parameters are reported together.
func (c *Config) BuildStages() ([]pipeline.Stage, error) {
	var (
		stages []pipeline.Stage
		errs   []error
	)
	for i, sc := range c.Stages {
		s, err := sc.build()
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %d %q: %w", i+1, sc.Name, err))
			continue
		}
		stages = append(stages, s)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if q := c.Quality; q.Enabled {
		opts := []pipeline.StageOption{pipeline.WithValidation(quality.Gate(q.MinCompleteness, q.MaxDuplicates))}
		if !q.Fatal {
			opts = append(opts, pipeline.Advisory())
		}
		stages = append(stages, pipeline.NewStage(QualityStageName, passThrough, opts...))
	}
	return stages, nil
}

func (s StageConfig) build() (pipeline.Stage, error) {
	var fn pipeline.TransformFunc = passThrough
	if s.Transform.Kind != "" {
		var err error
		if fn, err = transform.Build(s.Transform.Kind, s.Transform.Params); err != nil {
			return pipeline.Stage{}, err
		}
	}

	var opts []pipeline.StageOption
	if len(s.Validate) > 0 {
		rules := make([]validate.Rule, 0, len(s.Validate))
		for _, rc := range s.Validate {
			rule, err := validate.Build(rc.Rule, rc.Params)
			if err != nil {
				return pipeline.Stage{}, err
			}
			rules = append(rules, rule)
		}
		rule := rules[0]
		if len(rules) > 1 {
			rule = validate.All(rules...)
		}
		opts = append(opts, pipeline.WithValidation(rule))
	}
	if !s.IsFatal() {
		opts = append(opts, pipeline.Advisory())
	}
	return pipeline.NewStage(s.Name, fn, opts...), nil
}

func passThrough(_ context.Context, t *table.Table) (*table.Table, error) {
	return t, nil
}
