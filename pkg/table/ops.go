package table

import (
	"fmt"
	"slices"
)

// Select returns a table with only the named columns, in the given order.
func (t *Table) Select(names ...string) (*Table, error) {
	cols, err := t.columns(names)
	if err != nil {
		return nil, err
	}
	return New(cols...)
}

// Drop returns a table without the named columns.
func (t *Table) Drop(names ...string) (*Table, error) {
	if _, err := t.columns(names); err != nil {
		return nil, err
	}
	keep := make([]*Column, 0, len(t.cols))
	for _, c := range t.cols {
		if !slices.Contains(names, c.name) {
			keep = append(keep, c)
		}
	}
	out, err := New(keep...)
	if err != nil {
		return nil, err
	}
	if len(keep) == 0 {
		out.rows = t.rows
	}
	return out, nil
}

// Rename returns a table with columns renamed according to mapping.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	for from := range mapping {
		if !t.HasColumn(from) {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, from)
		}
	}
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		if to, ok := mapping[c.name]; ok {
			cols[i] = c.renamed(to)
		} else {
			cols[i] = c
		}
	}
	return New(cols...)
}

// Filter keeps the rows for which pred returns true.
func (t *Table) Filter(pred func(Row) bool) *Table {
	idx := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		if pred(Row{t: t, i: i}) {
			idx = append(idx, i)
		}
	}
	return t.take(idx)
}

// Slice returns rows [start, end). Bounds are clamped to the table.
func (t *Table) Slice(start, end int) *Table {
	start = max(0, min(start, t.rows))
	end = max(start, min(end, t.rows))
	idx := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		idx = append(idx, i)
	}
	return t.take(idx)
}

// Head returns the first n rows.
func (t *Table) Head(n int) *Table {
	return t.Slice(0, n)
}

// WithColumn adds c, or replaces the column of the same name in place.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	if c == nil {
		return nil, fmt.Errorf("table: column is nil")
	}
	if len(t.cols) > 0 && c.length != t.rows {
		return nil, fmt.Errorf("%w: column %q has %d rows, want %d",
			ErrLengthMismatch, c.name, c.length, t.rows)
	}
	cols := t.Columns()
	if i, ok := t.index[c.name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Derive adds (or replaces) a column computed row by row. fn returns nil
// for a null.
func (t *Table) Derive(name string, typ Type, fn func(Row) any) (*Table, error) {
	values := make([]any, t.rows)
	for i := range values {
		values[i] = fn(Row{t: t, i: i})
	}
	c, err := NewColumn(name, typ, values)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(c)
}

// SortKey names a sort column and its direction.
type SortKey struct {
	Column     string
	Descending bool
}

func Asc(col string) SortKey { return SortKey{Column: col} }
func Desc(col string) SortKey { return SortKey{Column: col, Descending: true} }

// Sort orders rows by the keys. The sort is stable and nulls sort last in
// either direction.
func (t *Table) Sort(keys ...SortKey) (*Table, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("table: sort needs at least one key")
	}
	cols := make([]*Column, len(keys))
	for k, key := range keys {
		c, err := t.Column(key.Column)
		if err != nil {
			return nil, err
		}
		cols[k] = c
	}
	idx := make([]int, t.rows)
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		for k, c := range cols {
			na, nb := c.IsNull(a), c.IsNull(b)
			switch {
			case na && nb:
				continue
			case na:
				return 1
			case nb:
				return -1
			}
			r := c.compareAt(a, b)
			if r == 0 {
				continue
			}
			if keys[k].Descending {
				return -r
			}
			return r
		}
		return 0
	})
	return t.take(idx), nil
}

// DropNulls removes rows with a null in any of cols, or in any column when
// cols is empty.
func (t *Table) DropNulls(cols ...string) (*Table, error) {
	sel, err := t.columns(cols)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, t.rows)
rows:
	for i := 0; i < t.rows; i++ {
		for _, c := range sel {
			if c.IsNull(i) {
				continue rows
			}
		}
		idx = append(idx, i)
	}
	return t.take(idx), nil
}

// DropDuplicates keeps the first occurrence of each distinct row, compared
// on cols or on all columns.
func (t *Table) DropDuplicates(cols ...string) (*Table, error) {
	dup, err := t.Duplicated(cols...)
	if err != nil {
		return nil, err
	}
	idx := make([]int, 0, t.rows)
	for i, d := range dup {
		if !d {
			idx = append(idx, i)
		}
	}
	return t.take(idx), nil
}

// FillNulls replaces nulls in col with v, which must fit the column type.
func (t *Table) FillNulls(col string, v any) (*Table, error) {
	c, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("table: fill value for %q cannot be nil", col)
	}
	if _, ok := normalize(c.typ, v); !ok {
		return nil, fmt.Errorf("%w: fill value %T does not fit %s column %q", ErrTypeMismatch, v, c.typ, col)
	}
	if c.nullCount == 0 {
		return t, nil
	}
	values := c.Values()
	for i, x := range values {
		if x == nil {
			values[i] = v
		}
	}
	filled, err := NewColumn(c.name, c.typ, values)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(filled)
}

// Cast converts col to typ. Any value that cannot be converted fails the
// whole cast.
func (t *Table) Cast(col string, typ Type) (*Table, error) {
	return t.cast(col, typ, false)
}

// Coerce converts col to typ, turning values that cannot be converted into
// nulls.
func (t *Table) Coerce(col string, typ Type) (*Table, error) {
	return t.cast(col, typ, true)
}

func (t *Table) cast(col string, typ Type, lenient bool) (*Table, error) {
	c, err := t.Column(col)
	if err != nil {
		return nil, err
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: invalid target type %s", ErrTypeMismatch, typ)
	}
	if c.typ == typ {
		return t, nil
	}
	if c.typ.Textual() && typ.Textual() {
		return t.WithColumn(c.retyped(typ))
	}
	values := make([]any, c.length)
	for i := range values {
		v := c.Value(i)
		if v == nil {
			continue
		}
		cv, err := convert(v, c.typ, typ)
		if err != nil {
			if lenient {
				continue
			}
			return nil, fmt.Errorf("column %q row %d: %w", col, i, err)
		}
		values[i] = cv
	}
	out, err := NewColumn(c.name, typ, values)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(out)
}

// Concat stacks tables vertically. All tables must share the same schema.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("table: concat needs at least one table")
	}
	schema := tables[0].Schema()
	total := 0
	for i, t := range tables {
		if !t.Schema().Equal(schema) {
			return nil, fmt.Errorf("%w: table %d has schema %s, want %s",
				ErrTypeMismatch, i, t.Schema(), schema)
		}
		total += t.rows
	}
	cols := make([]*Column, len(schema))
	for ci, f := range schema {
		out := allocColumn(f.Name, f.Type, total)
		row := 0
		for _, t := range tables {
			src := t.cols[ci]
			for i := 0; i < t.rows; i++ {
				if src.IsNull(i) {
					out.setNull(row)
				} else {
					out.copyAt(row, src, i)
				}
				row++
			}
		}
		cols[ci] = out
	}
	return New(cols...)
}
