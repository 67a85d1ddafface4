package table

import "time"

// Row is a read-only view of one table row, used by predicates and
// derived-column functions.
type Row struct {
	t *Table
	i int
}

// Index returns the row position within its table.
func (r Row) Index() int { return r.i }

func (r Row) column(name string) *Column {
	idx, ok := r.t.index[name]
	if !ok {
		return nil
	}
	return r.t.cols[idx]
}

// Value returns the value of the named column, or nil when it is null or
// the column does not exist.
func (r Row) Value(name string) any {
	if c := r.column(name); c != nil {
		return c.Value(r.i)
	}
	return nil
}

// IsNull reports whether the named column is null in this row. A missing
// column reads as null.
func (r Row) IsNull(name string) bool {
	c := r.column(name)
	return c == nil || c.IsNull(r.i)
}

func (r Row) Int(name string) (int64, bool) {
	if c := r.column(name); c != nil {
		return c.Int(r.i)
	}
	return 0, false
}

func (r Row) Float(name string) (float64, bool) {
	if c := r.column(name); c != nil {
		return c.Float(r.i)
	}
	return 0, false
}

func (r Row) String(name string) (string, bool) {
	if c := r.column(name); c != nil {
		return c.String(r.i)
	}
	return "", false
}

func (r Row) Bool(name string) (bool, bool) {
	if c := r.column(name); c != nil {
		return c.Bool(r.i)
	}
	return false, false
}

func (r Row) Time(name string) (time.Time, bool) {
	if c := r.column(name); c != nil {
		return c.Time(r.i)
	}
	return time.Time{}, false
}

// Values returns the row in column order.
func (r Row) Values() []any {
	out := make([]any, len(r.t.cols))
	for ci, c := range r.t.cols {
		out[ci] = c.Value(r.i)
	}
	return out
}

// Map returns the row keyed by column name.
func (r Row) Map() map[string]any {
	out := make(map[string]any, len(r.t.cols))
	for _, c := range r.t.cols {
		out[c.name] = c.Value(r.i)
	}
	return out
}
