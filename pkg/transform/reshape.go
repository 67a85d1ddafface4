package transform

import (
	"context"
	"time"

	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// Pivot reshapes long rows into one column per distinct value of
// spec.Columns.
func Pivot(spec table.PivotSpec) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Pivot(spec)
	}
}

// Melt reshapes wide columns into variable/value rows.
func Melt(idVars, valueVars []string, varName, valueName string) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Melt(idVars, valueVars, varName, valueName)
	}
}

// Resample aggregates rows into fixed time buckets of the ts column.
func Resample(ts string, every time.Duration, specs ...table.AggSpec) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Resample(ts, every, specs...)
	}
}

// Rolling adds a trailing-window statistic over spec.Column.
func Rolling(window int, spec table.AggSpec) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Rolling(window, spec)
	}
}
