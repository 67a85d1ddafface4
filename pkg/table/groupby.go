package table

import (
	"fmt"
	"math"
	"strings"
)

// AggFunc names an aggregation.
type AggFunc string

const (
	AggSum   AggFunc = "sum"
	AggMean  AggFunc = "mean"
	AggCount AggFunc = "count"
	AggMin   AggFunc = "min"
	AggMax   AggFunc = "max"
	// AggStd is the sample standard deviation. Groups with fewer than two
	// values give a null.
	AggStd AggFunc = "std"
)

// ParseAggFunc validates an aggregation name.
func ParseAggFunc(s string) (AggFunc, error) {
	f := AggFunc(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case AggSum, AggMean, AggCount, AggMin, AggMax, AggStd:
		return f, nil
	}
	return "", fmt.Errorf("table: unknown aggregation %q", s)
}

// AggSpec describes one output column of an aggregation. Count with an
// empty Column counts rows.
type AggSpec struct {
	Column string
	Func   AggFunc
	As     string
}

func Sum(col string) AggSpec { return AggSpec{Column: col, Func: AggSum} }
func Mean(col string) AggSpec { return AggSpec{Column: col, Func: AggMean} }
func Count(col string) AggSpec { return AggSpec{Column: col, Func: AggCount} }
func Min(col string) AggSpec { return AggSpec{Column: col, Func: AggMin} }
func Max(col string) AggSpec { return AggSpec{Column: col, Func: AggMax} }
func Std(col string) AggSpec { return AggSpec{Column: col, Func: AggStd} }

// Named sets the output column name.
func (s AggSpec) Named(as string) AggSpec {
	s.As = as
	return s
}

func (s AggSpec) outputName() string {
	switch {
	case s.As != "":
		return s.As
	case s.Column == "":
		return string(s.Func)
	}
	return s.Column + "_" + string(s.Func)
}

// Grouping is an intermediate result of GroupBy.
type Grouping struct {
	t    *Table
	keys []string
}

// GroupBy groups rows by equal values of keys. Rows with a null key are
// dropped. Groups keep first-appearance order.
func (t *Table) GroupBy(keys ...string) *Grouping {
	return &Grouping{t: t, keys: keys}
}

// Agg computes one row per group with the key columns followed by one
// column per spec.
func (g *Grouping) Agg(specs ...AggSpec) (*Table, error) {
	t := g.t
	if len(g.keys) == 0 {
		return nil, fmt.Errorf("table: group by needs at least one key column")
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("table: aggregation needs at least one spec")
	}
	keyCols, err := t.columns(g.keys)
	if err != nil {
		return nil, err
	}
	firsts, members := groupRows(keyCols, t.rows)

	out := make([]*Column, 0, len(keyCols)+len(specs))
	for _, c := range keyCols {
		out = append(out, c.take(firsts))
	}
	for _, spec := range specs {
		c, err := aggregate(t, spec, members)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return New(out...)
}

// groupRows partitions rows 0..n-1 by equal key tuples, skipping rows with
// a null key. firsts holds the first row of each group.
func groupRows(keyCols []*Column, n int) (firsts []int, members [][]int) {
	h := newHasher()
	buckets := make(map[uint64][]int)
	for i := 0; i < n; i++ {
		if anyNull(keyCols, i) {
			continue
		}
		fp := h.row(keyCols, i)
		group := -1
		for _, gi := range buckets[fp] {
			if rowsEqual(keyCols, firsts[gi], keyCols, i) {
				group = gi
				break
			}
		}
		if group < 0 {
			group = len(firsts)
			firsts = append(firsts, i)
			members = append(members, nil)
			buckets[fp] = append(buckets[fp], group)
		}
		members[group] = append(members[group], i)
	}
	return firsts, members
}

func aggregate(t *Table, spec AggSpec, groups [][]int) (*Column, error) {
	name := spec.outputName()
	if spec.Func == AggCount && spec.Column == "" {
		values := make([]any, len(groups))
		for gi, rows := range groups {
			values[gi] = int64(len(rows))
		}
		return NewColumn(name, Integer, values)
	}
	src, err := t.Column(spec.Column)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(groups))
	switch spec.Func {
	case AggCount:
		for gi, rows := range groups {
			n := int64(0)
			for _, i := range rows {
				if !src.IsNull(i) {
					n++
				}
			}
			values[gi] = n
		}
		return NewColumn(name, Integer, values)

	case AggSum:
		outType := src.typ
		switch src.typ {
		case Integer, Boolean:
			outType = Integer
			for gi, rows := range groups {
				var s int64
				for _, i := range rows {
					if n, ok := src.Int(i); ok {
						s += n
					} else if b, ok := src.Bool(i); ok && b {
						s++
					}
				}
				values[gi] = s
			}
		case Float:
			for gi, rows := range groups {
				var s float64
				for _, i := range rows {
					if f, ok := src.Float(i); ok {
						s += f
					}
				}
				values[gi] = s
			}
		default:
			return nil, unsupportedAgg(spec, src)
		}
		return NewColumn(name, outType, values)

	case AggMean:
		if !src.typ.Numeric() && src.typ != Boolean {
			return nil, unsupportedAgg(spec, src)
		}
		for gi, rows := range groups {
			var s float64
			n := 0
			for _, i := range rows {
				if f, ok := src.Float(i); ok {
					s += f
					n++
				} else if b, ok := src.Bool(i); ok {
					if b {
						s++
					}
					n++
				}
			}
			if n > 0 {
				values[gi] = s / float64(n)
			}
		}
		return NewColumn(name, Float, values)

	case AggStd:
		if !src.typ.Numeric() {
			return nil, unsupportedAgg(spec, src)
		}
		for gi, rows := range groups {
			// Welford's running mean and squared deviation.
			var mean, m2 float64
			n := 0
			for _, i := range rows {
				if f, ok := src.Float(i); ok {
					n++
					d := f - mean
					mean += d / float64(n)
					m2 += d * (f - mean)
				}
			}
			if n > 1 {
				values[gi] = math.Sqrt(m2 / float64(n-1))
			}
		}
		return NewColumn(name, Float, values)

	case AggMin, AggMax:
		if src.typ == Boolean {
			return nil, unsupportedAgg(spec, src)
		}
		want := -1
		if spec.Func == AggMax {
			want = 1
		}
		for gi, rows := range groups {
			best := -1
			for _, i := range rows {
				if src.IsNull(i) {
					continue
				}
				if best < 0 || src.compareAt(i, best)*want > 0 {
					best = i
				}
			}
			if best >= 0 {
				values[gi] = src.Value(best)
			}
		}
		return NewColumn(name, src.typ, values)
	}
	return nil, fmt.Errorf("table: unknown aggregation %q", spec.Func)
}

func unsupportedAgg(spec AggSpec, src *Column) error {
	return fmt.Errorf("%w: cannot %s %s column %q", ErrTypeMismatch, spec.Func, src.typ, src.name)
}
