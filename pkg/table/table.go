package table

import (
	"fmt"
	"strings"
)

// Table is an immutable, ordered collection of equal-length named columns.
// Every operation returns a new Table and leaves its receiver untouched;
// unchanged columns are shared between tables.
type Table struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New assembles a table from columns. Names must be unique and all columns
// must have the same length.
func New(cols ...*Column) (*Table, error) {
	t := &Table{
		cols:  make([]*Column, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("table: column %d is nil", i)
		}
		if _, dup := t.index[c.name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c.name)
		}
		if i == 0 {
			t.rows = c.length
		} else if c.length != t.rows {
			return nil, fmt.Errorf("%w: column %q has %d rows, want %d",
				ErrLengthMismatch, c.name, c.length, t.rows)
		}
		t.index[c.name] = i
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// MustNew is like New but panics on error.
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Empty returns a table with the given schema and no rows.
func Empty(schema Schema) (*Table, error) {
	cols := make([]*Column, len(schema))
	for i, f := range schema {
		c, err := NewColumn(f.Name, f.Type, nil)
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return New(cols...)
}

// FromRows builds a table from row-major values checked against schema.
func FromRows(schema Schema, rows [][]any) (*Table, error) {
	b := NewBuilder(schema)
	for _, r := range rows {
		if err := b.Append(r...); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

func (t *Table) NumRows() int { return t.rows }
func (t *Table) NumColumns() int { return len(t.cols) }

// Schema returns the table's fields in column order.
func (t *Table) Schema() Schema {
	s := make(Schema, len(t.cols))
	for i, c := range t.cols {
		s[i] = Field{Name: c.name, Type: c.typ}
	}
	return s
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return names
}

// Column returns the named column or an error wrapping ErrColumnNotFound.
func (t *Table) Column(name string) (*Column, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.cols[i], nil
}

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnAt returns the i-th column.
func (t *Table) ColumnAt(i int) *Column { return t.cols[i] }

// Columns returns the columns in order. The slice is a copy.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.cols...)
}

// Row returns a view of row i.
func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

// MemoryUsage estimates the bytes held by all columns.
func (t *Table) MemoryUsage() int64 {
	var total int64
	for _, c := range t.cols {
		total += c.MemoryUsage()
	}
	return total
}

// Equal reports whether both tables have the same schema and the same
// values, nulls included, in the same order.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.rows != o.rows || len(t.cols) != len(o.cols) {
		return false
	}
	for ci, c := range t.cols {
		oc := o.cols[ci]
		if c.name != oc.name || c.typ != oc.typ {
			return false
		}
		for i := 0; i < t.rows; i++ {
			if !c.equalAt(i, oc, i) {
				return false
			}
		}
	}
	return true
}

func (t *Table) String() string {
	return fmt.Sprintf("Table(%d rows x %d columns) %s", t.rows, len(t.cols), t.Schema())
}

// columns resolves names to columns. An empty list selects every column.
func (t *Table) columns(names []string) ([]*Column, error) {
	if len(names) == 0 {
		return t.cols, nil
	}
	out := make([]*Column, len(names))
	var missing []string
	for i, n := range names {
		idx, ok := t.index[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		out[i] = t.cols[idx]
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, strings.Join(missing, ", "))
	}
	return out, nil
}

// take gathers rows by index from every column.
func (t *Table) take(idx []int) *Table {
	cols := make([]*Column, len(t.cols))
	for i, c := range t.cols {
		cols[i] = c.take(idx)
	}
	return &Table{cols: cols, index: t.index, rows: len(idx)}
}
