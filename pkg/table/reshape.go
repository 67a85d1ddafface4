package table

import (
	"fmt"
	"slices"
)

// PivotSpec describes a pivot: one output row per distinct Index tuple and
// one output column per distinct value of Columns, holding Func applied to
// Values.
type PivotSpec struct {
	Index   []string
	Columns string
	Values  string
	Func    AggFunc

	// Fill replaces cells with no matching rows. Nil leaves them null.
	Fill any
}

// Pivot reshapes t from long to wide. Rows keep the first-appearance order
// of their index tuple; pivoted columns are named by FormatValue of their
// value and sorted by value. Rows with a null index or pivot value are
// dropped.
func (t *Table) Pivot(spec PivotSpec) (*Table, error) {
	if len(spec.Index) == 0 {
		return nil, fmt.Errorf("table: pivot needs at least one index column")
	}
	if spec.Columns == "" || spec.Values == "" {
		return nil, fmt.Errorf("table: pivot needs columns and values")
	}
	if spec.Func == "" {
		spec.Func = AggSum
	}
	indexCols, err := t.columns(spec.Index)
	if err != nil {
		return nil, err
	}
	pivotCols, err := t.columns([]string{spec.Columns})
	if err != nil {
		return nil, err
	}
	if !t.HasColumn(spec.Values) {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, spec.Values)
	}
	pivot := pivotCols[0]

	rowFirsts, rowMembers := groupRows(indexCols, t.rows)
	colFirsts, _ := groupRows(pivotCols, t.rows)
	slices.SortFunc(colFirsts, pivot.compareAt)

	out := make([]*Column, 0, len(indexCols)+len(colFirsts))
	for _, c := range indexCols {
		out = append(out, c.take(rowFirsts))
	}
	for _, pv := range colFirsts {
		name := FormatValue(pivot.Value(pv))
		if slices.Contains(spec.Index, name) {
			return nil, fmt.Errorf("%w: pivot value %q collides with an index column", ErrDuplicateColumn, name)
		}

		cells := make([][]int, len(rowMembers))
		for gi, rows := range rowMembers {
			for _, i := range rows {
				if pivot.equalAt(i, pivot, pv) {
					cells[gi] = append(cells[gi], i)
				}
			}
		}
		agg, err := aggregate(t, AggSpec{Column: spec.Values, Func: spec.Func, As: name}, cells)
		if err != nil {
			return nil, err
		}
		values := agg.Values()
		for gi, rows := range cells {
			if len(rows) == 0 {
				values[gi] = spec.Fill
			}
		}
		c, err := NewColumn(name, agg.Type(), values)
		if err != nil {
			return nil, fmt.Errorf("pivot fill: %w", err)
		}
		out = append(out, c)
	}
	return New(out...)
}

// Melt reshapes t from wide to long. Each row of t becomes one row per
// value column, holding the id columns, the value column's name under
// varName and its value under valueName. Output is ordered by value column,
// then by source row. An empty valueVars melts every non-id column. Value
// columns must share a type; Integer and Float mix into Float.
func (t *Table) Melt(idVars, valueVars []string, varName, valueName string) (*Table, error) {
	if varName == "" {
		varName = "variable"
	}
	if valueName == "" {
		valueName = "value"
	}
	if len(idVars) > 0 {
		if _, err := t.columns(idVars); err != nil {
			return nil, err
		}
	}
	if len(valueVars) == 0 {
		for _, c := range t.cols {
			if !slices.Contains(idVars, c.name) {
				valueVars = append(valueVars, c.name)
			}
		}
	}
	if len(valueVars) == 0 {
		return nil, fmt.Errorf("table: melt has no value columns")
	}
	valueCols, err := t.columns(valueVars)
	if err != nil {
		return nil, err
	}
	valueType, err := meltType(valueCols)
	if err != nil {
		return nil, err
	}

	n := t.rows * len(valueCols)
	idx := make([]int, 0, n)
	names := make([]any, 0, n)
	values := make([]any, 0, n)
	for _, c := range valueCols {
		for i := 0; i < t.rows; i++ {
			idx = append(idx, i)
			names = append(names, c.name)
			values = append(values, c.Value(i))
		}
	}

	out := make([]*Column, 0, len(idVars)+2)
	for _, id := range idVars {
		c, _ := t.Column(id)
		out = append(out, c.take(idx))
	}
	nameCol, err := NewColumn(varName, Categorical, names)
	if err != nil {
		return nil, err
	}
	valueCol, err := NewColumn(valueName, valueType, values)
	if err != nil {
		return nil, err
	}
	return New(append(out, nameCol, valueCol)...)
}

func meltType(cols []*Column) (Type, error) {
	typ := cols[0].typ
	for _, c := range cols[1:] {
		switch {
		case c.typ == typ:
		case c.typ.Numeric() && typ.Numeric():
			typ = Float
		case c.typ.Textual() && typ.Textual():
			typ = Text
		default:
			return Invalid, fmt.Errorf("%w: cannot melt %s column %q with %s columns", ErrTypeMismatch, c.typ, c.name, typ)
		}
	}
	return typ, nil
}
