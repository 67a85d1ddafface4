package table

import (
	"cmp"
	"fmt"
	"math"
	"strings"
	"time"
)

// Column is an immutable, typed sequence of nullable values. Storage is a
// typed slice chosen by the declared type plus an optional null mask.
type Column struct {
	name   string
	typ    Type
	length int

	ints   []int64
	floats []float64
	strs   []string
	bools  []bool
	times  []time.Time

	nulls     []bool
	nullCount int
}

func allocColumn(name string, typ Type, n int) *Column {
	c := &Column{name: name, typ: typ, length: n}
	switch typ {
	case Integer:
		c.ints = make([]int64, n)
	case Float:
		c.floats = make([]float64, n)
	case Text, Categorical:
		c.strs = make([]string, n)
	case Boolean:
		c.bools = make([]bool, n)
	case Timestamp:
		c.times = make([]time.Time, n)
	}
	return c
}

// NewColumn builds a column of the declared type. A nil entry is a null,
// and so is a NaN in a Float column. Integers widen to Float columns;
// nothing else is coerced.
func NewColumn(name string, typ Type, values []any) (*Column, error) {
	if name == "" {
		return nil, fmt.Errorf("table: column name cannot be empty")
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: column %q has invalid type %s", ErrTypeMismatch, name, typ)
	}
	c := allocColumn(name, typ, len(values))
	for i, v := range values {
		if err := c.set(i, v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustColumn is like NewColumn but panics on error. Intended for tests and
// static fixtures.
func MustColumn(name string, typ Type, values ...any) *Column {
	c, err := NewColumn(name, typ, values)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Column) set(i int, v any) error {
	if v == nil {
		c.setNull(i)
		return nil
	}
	nv, ok := normalize(c.typ, v)
	if !ok {
		return fmt.Errorf("%w: column %q row %d: %T is not %s", ErrTypeMismatch, c.name, i, v, c.typ)
	}
	switch c.typ {
	case Integer:
		c.ints[i] = nv.(int64)
	case Float:
		f := nv.(float64)
		if math.IsNaN(f) {
			// NaN is missing data, never a present value.
			c.setNull(i)
			return nil
		}
		c.floats[i] = f
	case Text, Categorical:
		c.strs[i] = nv.(string)
	case Boolean:
		c.bools[i] = nv.(bool)
	case Timestamp:
		c.times[i] = nv.(time.Time)
	}
	return nil
}

func (c *Column) setNull(i int) {
	if c.nulls == nil {
		c.nulls = make([]bool, c.length)
	}
	if !c.nulls[i] {
		c.nulls[i] = true
		c.nullCount++
	}
}

// normalize converts v to the canonical Go representation of typ.
func normalize(typ Type, v any) (any, bool) {
	switch typ {
	case Integer:
		n, ok := asInt(v)
		return n, ok
	case Float:
		if n, ok := asInt(v); ok {
			return float64(n), true
		}
		switch f := v.(type) {
		case float64:
			return f, true
		case float32:
			return float64(f), true
		}
	case Text, Categorical:
		s, ok := v.(string)
		return s, ok
	case Boolean:
		b, ok := v.(bool)
		return b, ok
	case Timestamp:
		ts, ok := v.(time.Time)
		return ts, ok
	}
	return nil, false
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

func (c *Column) Name() string { return c.name }
func (c *Column) Type() Type { return c.typ }
func (c *Column) Len() int { return c.length }

// NullCount returns the number of null entries.
func (c *Column) NullCount() int { return c.nullCount }

// IsNull reports whether row i is null.
func (c *Column) IsNull(i int) bool {
	return c.nulls != nil && c.nulls[i]
}

// Value returns row i as int64, float64, string, bool or time.Time, or nil
// for a null.
func (c *Column) Value(i int) any {
	if c.IsNull(i) {
		return nil
	}
	switch c.typ {
	case Integer:
		return c.ints[i]
	case Float:
		return c.floats[i]
	case Text, Categorical:
		return c.strs[i]
	case Boolean:
		return c.bools[i]
	case Timestamp:
		return c.times[i]
	}
	return nil
}

// Values returns all rows as in Value.
func (c *Column) Values() []any {
	out := make([]any, c.length)
	for i := range out {
		out[i] = c.Value(i)
	}
	return out
}

func (c *Column) Int(i int) (int64, bool) {
	if c.typ != Integer || c.IsNull(i) {
		return 0, false
	}
	return c.ints[i], true
}

// Float reads row i of a numeric column. Integer values are widened.
func (c *Column) Float(i int) (float64, bool) {
	if c.IsNull(i) {
		return 0, false
	}
	switch c.typ {
	case Float:
		return c.floats[i], true
	case Integer:
		return float64(c.ints[i]), true
	}
	return 0, false
}

func (c *Column) String(i int) (string, bool) {
	if !c.typ.Textual() || c.IsNull(i) {
		return "", false
	}
	return c.strs[i], true
}

func (c *Column) Bool(i int) (bool, bool) {
	if c.typ != Boolean || c.IsNull(i) {
		return false, false
	}
	return c.bools[i], true
}

func (c *Column) Time(i int) (time.Time, bool) {
	if c.typ != Timestamp || c.IsNull(i) {
		return time.Time{}, false
	}
	return c.times[i], true
}

// Categories returns the distinct non-null values of a textual column in
// first-seen order.
func (c *Column) Categories() []string {
	if !c.typ.Textual() {
		return nil
	}
	seen := make(map[string]struct{})
	var out []string
	for i, s := range c.strs {
		if c.IsNull(i) {
			continue
		}
		if _, ok := seen[s]; !ok {
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// MemoryUsage estimates the bytes held by the column. Categorical columns
// count each distinct string once plus a 4-byte code per row.
func (c *Column) MemoryUsage() int64 {
	n := int64(c.length)
	var size int64
	switch c.typ {
	case Integer, Float:
		size = 8 * n
	case Boolean:
		size = n
	case Timestamp:
		size = 24 * n
	case Text:
		size = 16 * n
		for _, s := range c.strs {
			size += int64(len(s))
		}
	case Categorical:
		size = 4 * n
		for _, s := range c.Categories() {
			size += 16 + int64(len(s))
		}
	}
	if c.nulls != nil {
		size += n
	}
	return size + int64(len(c.name))
}

func (c *Column) renamed(name string) *Column {
	cp := *c
	cp.name = name
	return &cp
}

func (c *Column) retyped(typ Type) *Column {
	cp := *c
	cp.typ = typ
	return &cp
}

// take gathers rows by index. A negative index produces a null.
func (c *Column) take(idx []int) *Column {
	out := allocColumn(c.name, c.typ, len(idx))
	for j, i := range idx {
		if i < 0 || c.IsNull(i) {
			out.setNull(j)
			continue
		}
		out.copyAt(j, c, i)
	}
	return out
}

func (c *Column) copyAt(j int, src *Column, i int) {
	switch c.typ {
	case Integer:
		c.ints[j] = src.ints[i]
	case Float:
		c.floats[j] = src.floats[i]
	case Text, Categorical:
		c.strs[j] = src.strs[i]
	case Boolean:
		c.bools[j] = src.bools[i]
	case Timestamp:
		c.times[j] = src.times[i]
	}
}

// equalAt compares row i of c with row j of o. Nulls equal nulls. Columns
// must share a storage type.
func (c *Column) equalAt(i int, o *Column, j int) bool {
	ni, nj := c.IsNull(i), o.IsNull(j)
	if ni || nj {
		return ni && nj
	}
	switch c.typ {
	case Integer:
		return c.ints[i] == o.ints[j]
	case Float:
		return c.floats[i] == o.floats[j]
	case Text, Categorical:
		return c.strs[i] == o.strs[j]
	case Boolean:
		return c.bools[i] == o.bools[j]
	case Timestamp:
		return c.times[i].Equal(o.times[j])
	}
	return false
}

// compareAt orders two non-null rows of the same column.
func (c *Column) compareAt(i, j int) int {
	switch c.typ {
	case Integer:
		return cmp.Compare(c.ints[i], c.ints[j])
	case Float:
		return cmp.Compare(c.floats[i], c.floats[j])
	case Text, Categorical:
		return strings.Compare(c.strs[i], c.strs[j])
	case Boolean:
		switch {
		case c.bools[i] == c.bools[j]:
			return 0
		case c.bools[j]:
			return -1
		default:
			return 1
		}
	case Timestamp:
		return c.times[i].Compare(c.times[j])
	}
	return 0
}

func sameStorage(a, b Type) bool {
	return a == b || (a.Textual() && b.Textual())
}
