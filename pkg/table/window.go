package table

import (
	"fmt"
	"time"
)

// maxBuckets bounds the rows Resample may emit.
const maxBuckets = 1 << 20

// Resample buckets rows by the timestamp column ts into consecutive
// intervals of length every and aggregates each bucket with specs. The
// output has the bucket start under ts followed by one column per spec, with
// one row for every interval between the first and last timestamp, empty
// ones included. Buckets are aligned to multiples of every since the zero
// time in UTC, so daily buckets start at midnight UTC and weekly ones on
// Monday. Rows with a null timestamp are dropped.
func (t *Table) Resample(ts string, every time.Duration, specs ...AggSpec) (*Table, error) {
	if every <= 0 {
		return nil, fmt.Errorf("table: resample interval must be positive, got %s", every)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("table: resample needs at least one spec")
	}
	col, err := t.Column(ts)
	if err != nil {
		return nil, err
	}
	if col.typ != Timestamp {
		return nil, fmt.Errorf("%w: resample column %q is %s, not timestamp", ErrTypeMismatch, ts, col.typ)
	}

	var first, last time.Time
	seen := false
	for i := 0; i < t.rows; i++ {
		v, ok := col.Time(i)
		if !ok {
			continue
		}
		b := v.UTC().Truncate(every)
		if !seen || b.Before(first) {
			first = b
		}
		if !seen || b.After(last) {
			last = b
		}
		seen = true
	}

	var groups [][]int
	var starts []any
	if seen {
		n := int(last.Sub(first)/every) + 1
		if n > maxBuckets {
			return nil, fmt.Errorf("table: resample would produce %d buckets, limit is %d", n, maxBuckets)
		}
		groups = make([][]int, n)
		starts = make([]any, n)
		for b := range starts {
			starts[b] = first.Add(time.Duration(b) * every)
		}
		for i := 0; i < t.rows; i++ {
			if v, ok := col.Time(i); ok {
				b := int(v.UTC().Truncate(every).Sub(first) / every)
				groups[b] = append(groups[b], i)
			}
		}
	}

	start, err := NewColumn(ts, Timestamp, starts)
	if err != nil {
		return nil, err
	}
	out := []*Column{start}
	for _, spec := range specs {
		c, err := aggregate(t, spec, groups)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return New(out...)
}

// Rolling adds a column computing spec over a trailing window of rows, in
// the table's current order. A row gets a value only when its window is
// full and holds no nulls. The column is named spec.As, or
// "<column>_rolling_<func>", and replaces an existing column of that name.
func (t *Table) Rolling(window int, spec AggSpec) (*Table, error) {
	if window <= 0 {
		return nil, fmt.Errorf("table: rolling window must be positive, got %d", window)
	}
	if spec.Column == "" {
		return nil, fmt.Errorf("table: rolling needs a column")
	}
	src, err := t.Column(spec.Column)
	if err != nil {
		return nil, err
	}
	if spec.As == "" {
		spec.As = fmt.Sprintf("%s_rolling_%s", spec.Column, spec.Func)
	}

	groups := make([][]int, t.rows)
	full := make([]bool, t.rows)
	nulls := 0
	for i := 0; i < t.rows; i++ {
		if src.IsNull(i) {
			nulls++
		}
		lo := i - window + 1
		if lo > 0 && src.IsNull(lo-1) {
			nulls--
		}
		if lo < 0 {
			continue
		}
		rows := make([]int, window)
		for k := range rows {
			rows[k] = lo + k
		}
		groups[i] = rows
		full[i] = nulls == 0
	}

	agg, err := aggregate(t, spec, groups)
	if err != nil {
		return nil, err
	}
	values := agg.Values()
	for i := range values {
		if !full[i] {
			values[i] = nil
		}
	}
	c, err := NewColumn(spec.As, agg.Type(), values)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(c)
}
