package tableio

import (
	"fmt"
	"strings"
	"time"

	"github.com/vnykmshr/tabflow/pkg/table"
)

// inferOrder lists the types tried, most specific first, when a column of
// text cells has no declared type.
var inferOrder = []table.Type{table.Integer, table.Float, table.Boolean, table.Timestamp}

// inferText picks the most specific type that parses every non-empty cell.
// A column with no values is text.
func inferText(cells []string) table.Type {
	candidates := append([]table.Type(nil), inferOrder...)
	seen := false
	for _, s := range cells {
		if strings.TrimSpace(s) == "" {
			continue
		}
		seen = true
		kept := candidates[:0]
		for _, typ := range candidates {
			if _, err := table.ParseValue(s, typ); err == nil {
				kept = append(kept, typ)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			return table.Text
		}
	}
	if !seen {
		return table.Text
	}
	return candidates[0]
}

// textColumn parses cells into a column of typ. Empty cells are nulls.
func textColumn(name string, typ table.Type, cells []string) (*table.Column, error) {
	values := make([]any, len(cells))
	for i, s := range cells {
		v, err := table.ParseValue(s, typ)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		values[i] = v
	}
	return table.NewColumn(name, typ, values)
}

// inferValues picks a type for decoded values that are already int64,
// float64, string, bool, time.Time or nil. Integers mixed with floats
// widen to float; any other mix falls back to text.
func inferValues(values []any) table.Type {
	typ := table.Invalid
	for _, v := range values {
		var t table.Type
		switch v.(type) {
		case nil:
			continue
		case int64:
			t = table.Integer
		case float64:
			t = table.Float
		case bool:
			t = table.Boolean
		case time.Time:
			t = table.Timestamp
		default:
			t = table.Text
		}
		switch {
		case typ == table.Invalid || typ == t:
			typ = t
		case typ.Numeric() && t.Numeric():
			typ = table.Float
		default:
			return table.Text
		}
	}
	if typ == table.Invalid {
		return table.Text
	}
	return typ
}

// valueColumn builds a column from decoded values. When typ is Invalid the
// type is inferred. Values that do not fit typ are converted through
// their text form.
func valueColumn(name string, typ table.Type, values []any) (*table.Column, error) {
	if typ == table.Invalid {
		typ = inferValues(values)
	}
	fitted := make([]any, len(values))
	for i, v := range values {
		fv, err := fitDecoded(v, typ)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		fitted[i] = fv
	}
	return table.NewColumn(name, typ, fitted)
}

func fitDecoded(v any, typ table.Type) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return table.ParseValue(x, typ)
	case int64:
		switch typ {
		case table.Integer:
			return x, nil
		case table.Float:
			return float64(x), nil
		case table.Boolean:
			return x != 0, nil
		}
	case float64:
		switch typ {
		case table.Float:
			return x, nil
		case table.Integer:
			if x == float64(int64(x)) {
				return int64(x), nil
			}
		}
	case bool:
		if typ == table.Boolean {
			return x, nil
		}
	case time.Time:
		if typ == table.Timestamp {
			return x.UTC(), nil
		}
	}
	if typ.Textual() {
		return table.FormatValue(v), nil
	}
	return table.ParseValue(table.FormatValue(v), typ)
}
