package transform

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// Select keeps only the named columns, in the given order.
func Select(cols ...string) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Select(cols...)
	}
}

// Drop removes the named columns.
func Drop(cols ...string) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Drop(cols...)
	}
}

// Rename renames columns from old to new names.
func Rename(mapping map[string]string) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Rename(mapping)
	}
}

// DropNulls removes rows with a null in any of cols, or in any column when
// none are named.
func DropNulls(cols ...string) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.DropNulls(cols...)
	}
}

// DropDuplicates keeps the first of each group of equal rows.
func DropDuplicates(cols ...string) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.DropDuplicates(cols...)
	}
}

// FillNulls replaces nulls in col with value. A string value is parsed
// into the column type, so definitions read from text files can fill
// numeric and timestamp columns.
func FillNulls(col string, value any) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		c, err := t.Column(col)
		if err != nil {
			return nil, err
		}
		v, err := fitValue(value, c.Type())
		if err != nil {
			return nil, fmt.Errorf("fill %q: %w", col, err)
		}
		return t.FillNulls(col, v)
	}
}

// Cast converts col to typ and fails on the first value that does not
// convert.
func Cast(col string, typ table.Type) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Cast(col, typ)
	}
}

// Coerce converts col to typ and turns values that do not convert into
// nulls.
func Coerce(col string, typ table.Type) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Coerce(col, typ)
	}
}

// TrimText strips surrounding whitespace from text columns and converts
// them to title case. With no columns named, every text and categorical
// column is cleaned.
func TrimText(cols ...string) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		targets := cols
		if len(targets) == 0 {
			for _, f := range t.Schema() {
				if f.Type.Textual() {
					targets = append(targets, f.Name)
				}
			}
		}

		caser := cases.Title(language.Und)
		out := t
		for _, name := range targets {
			c, err := out.Column(name)
			if err != nil {
				return nil, err
			}
			if !c.Type().Textual() {
				return nil, fmt.Errorf("%w: trim %q: column is %s", table.ErrTypeMismatch, name, c.Type())
			}
			values := c.Values()
			for i, v := range values {
				if s, ok := v.(string); ok {
					values[i] = caser.String(strings.TrimSpace(s))
				}
			}
			cleaned, err := table.NewColumn(name, c.Type(), values)
			if err != nil {
				return nil, err
			}
			if out, err = out.WithColumn(cleaned); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
}

// Sort orders rows by keys. Nulls sort last.
func Sort(keys ...table.SortKey) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Sort(keys...)
	}
}

// Limit keeps the first n rows.
func Limit(n int) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		if n < 0 {
			return nil, fmt.Errorf("limit must not be negative, got %d", n)
		}
		return t.Head(n), nil
	}
}

// Derive adds or replaces column name with fn evaluated on every row.
func Derive(name string, typ table.Type, fn func(table.Row) any) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Derive(name, typ, fn)
	}
}

// Join joins the stage input with right on the key columns.
func Join(right *table.Table, on []string, kind table.JoinKind) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Join(right, on, kind)
	}
}

// Aggregate groups rows by keys and computes one row per group.
func Aggregate(keys []string, specs ...table.AggSpec) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.GroupBy(keys...).Agg(specs...)
	}
}

// Chain applies fns in order as a single transform. It stops at the first
// error and honours context cancellation between steps.
func Chain(fns ...pipeline.TransformFunc) pipeline.TransformFunc {
	return func(ctx context.Context, t *table.Table) (*table.Table, error) {
		out := t
		for i, fn := range fns {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			next, err := fn(ctx, out)
			if err != nil {
				return nil, fmt.Errorf("chain step %d: %w", i+1, err)
			}
			out = next
		}
		return out, nil
	}
}

// fitValue converts a literal from a definition into a value of typ.
func fitValue(v any, typ table.Type) (any, error) {
	s, ok := v.(string)
	if !ok || typ.Textual() {
		return v, nil
	}
	parsed, err := table.ParseValue(s, typ)
	if err != nil {
		return nil, err
	}
	if parsed == nil {
		return nil, fmt.Errorf("empty literal for %s column", typ)
	}
	return parsed, nil
}
