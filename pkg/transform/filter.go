package transform

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// Op is a comparison operator used by Filter.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpContains Op = "contains"
)

var opAliases = map[string]Op{
	"eq": OpEq, "==": OpEq, "=": OpEq,
	"neq": OpNeq, "!=": OpNeq, "<>": OpNeq,
	"gt": OpGt, ">": OpGt,
	"gte": OpGte, ">=": OpGte,
	"lt": OpLt, "<": OpLt,
	"lte": OpLte, "<=": OpLte,
	"contains": OpContains,
}

// ParseOp parses an operator name or symbol such as "gte" or ">=".
func ParseOp(s string) (Op, error) {
	if op, ok := opAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return op, nil
	}
	return "", fmt.Errorf("unknown filter operator %q", s)
}

func (op Op) matches(c int) bool {
	switch op {
	case OpEq:
		return c == 0
	case OpNeq:
		return c != 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

// Filter keeps rows where col compared with value satisfies op. Rows with
// a null in col never match. Numeric columns compare as floats; a string
// value is parsed into the column type. OpContains applies to text
// columns only.
func Filter(col string, op Op, value any) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		c, err := t.Column(col)
		if err != nil {
			return nil, err
		}
		op, err := ParseOp(string(op))
		if err != nil {
			return nil, err
		}
		pred, err := predicate(c, op, value)
		if err != nil {
			return nil, fmt.Errorf("filter %q %s: %w", col, op, err)
		}
		return t.Filter(func(row table.Row) bool {
			i := row.Index()
			return !c.IsNull(i) && pred(i)
		}), nil
	}
}

// Where keeps rows for which fn returns true.
func Where(fn func(table.Row) bool) pipeline.TransformFunc {
	return func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t.Filter(fn), nil
	}
}

func predicate(c *table.Column, op Op, value any) (func(int) bool, error) {
	if value == nil {
		return nil, fmt.Errorf("comparison value cannot be nil")
	}
	typ := c.Type()

	if op == OpContains {
		if !typ.Textual() {
			return nil, fmt.Errorf("%w: contains needs a text column, got %s", table.ErrTypeMismatch, typ)
		}
		needle := fmt.Sprint(value)
		return func(i int) bool {
			s, _ := c.String(i)
			return strings.Contains(s, needle)
		}, nil
	}

	switch {
	case typ.Numeric():
		want, err := toFloat(value)
		if err != nil {
			return nil, err
		}
		return func(i int) bool {
			f, _ := c.Float(i)
			if math.IsNaN(f) || math.IsNaN(want) {
				return op == OpNeq
			}
			return op.matches(cmp.Compare(f, want))
		}, nil

	case typ.Textual():
		want := fmt.Sprint(value)
		return func(i int) bool {
			s, _ := c.String(i)
			return op.matches(strings.Compare(s, want))
		}, nil

	case typ == table.Boolean:
		if op != OpEq && op != OpNeq {
			return nil, fmt.Errorf("%w: %s is not defined for boolean columns", table.ErrTypeMismatch, op)
		}
		v, err := fitValue(value, typ)
		if err != nil {
			return nil, err
		}
		want, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not boolean", table.ErrTypeMismatch, value)
		}
		return func(i int) bool {
			b, _ := c.Bool(i)
			if b == want {
				return op.matches(0)
			}
			return op.matches(1)
		}, nil

	case typ == table.Timestamp:
		v, err := fitValue(value, typ)
		if err != nil {
			return nil, err
		}
		want, ok := v.(time.Time)
		if !ok {
			return nil, fmt.Errorf("%w: %T is not timestamp", table.ErrTypeMismatch, value)
		}
		return func(i int) bool {
			ts, _ := c.Time(i)
			return op.matches(ts.Compare(want))
		}, nil
	}
	return nil, fmt.Errorf("%w: cannot filter %s column", table.ErrTypeMismatch, typ)
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint32:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case string:
		f, err := table.ParseValue(n, table.Float)
		if err != nil {
			return 0, err
		}
		if f == nil {
			return 0, fmt.Errorf("empty numeric literal")
		}
		return f.(float64), nil
	}
	return 0, fmt.Errorf("%w: %T is not numeric", table.ErrTypeMismatch, v)
}
