package table

import (
	"errors"
	"testing"
	"time"

	"github.com/vnykmshr/tabflow/internal/testutil"
)

func peopleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New(
		MustColumn("id", Integer, 1, 2, 3, 4),
		MustColumn("name", Text, "ana", "bruno", nil, "duda"),
		MustColumn("age", Integer, 31, nil, 45, 22),
		MustColumn("score", Float, 8.5, 7, 9.25, nil),
	)
	testutil.AssertNoError(t, err)
	return tbl
}

func TestNew(t *testing.T) {
	tbl := peopleTable(t)

	testutil.AssertEqual(t, tbl.NumRows(), 4)
	testutil.AssertEqual(t, tbl.NumColumns(), 4)
	testutil.AssertEqual(t, tbl.Schema().String(), "[id:integer, name:text, age:integer, score:float]")
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		cols []*Column
		want error
	}{
		{
			name: "length mismatch",
			cols: []*Column{MustColumn("a", Integer, 1, 2), MustColumn("b", Integer, 1)},
			want: ErrLengthMismatch,
		},
		{
			name: "duplicate name",
			cols: []*Column{MustColumn("a", Integer, 1), MustColumn("a", Text, "x")},
			want: ErrDuplicateColumn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cols...)
			testutil.AssertErrorIs(t, err, tt.want)
		})
	}
}

func TestNewColumnTypeChecks(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		values  []any
		wantErr bool
	}{
		{"ints", Integer, []any{1, int64(2), uint8(3), nil}, false},
		{"ints widen to float", Float, []any{1, 2.5, float32(3)}, false},
		{"float into integer", Integer, []any{1.5}, true},
		{"numeric string into integer", Integer, []any{"7"}, true},
		{"text", Text, []any{"a", nil}, false},
		{"int into text", Text, []any{1}, true},
		{"bool", Boolean, []any{true, false}, false},
		{"timestamp", Timestamp, []any{time.Unix(0, 0)}, false},
		{"string into timestamp", Timestamp, []any{"2024-01-01"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewColumn("c", tt.typ, tt.values)
			if tt.wantErr {
				testutil.AssertErrorIs(t, err, ErrTypeMismatch)
			} else {
				testutil.AssertNoError(t, err)
			}
		})
	}
}

func TestColumnAccessors(t *testing.T) {
	tbl := peopleTable(t)

	age, err := tbl.Column("age")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, age.NullCount(), 1)
	testutil.AssertEqual(t, age.IsNull(1), true)
	testutil.AssertEqual(t, age.Value(1), any(nil))

	n, ok := age.Int(0)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, n, int64(31))

	f, ok := age.Float(2)
	testutil.AssertEqual(t, ok, true)
	testutil.AssertFloat(t, f, 45)

	_, ok = age.String(0)
	testutil.AssertEqual(t, ok, false)

	_, err = tbl.Column("missing")
	testutil.AssertErrorIs(t, err, ErrColumnNotFound)
}

func TestRowView(t *testing.T) {
	tbl := peopleTable(t)
	row := tbl.Row(2)

	testutil.AssertEqual(t, row.Index(), 2)
	testutil.AssertEqual(t, row.IsNull("name"), true)
	testutil.AssertEqual(t, row.IsNull("nope"), true)

	age, ok := row.Int("age")
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, age, int64(45))

	values := row.Values()
	testutil.AssertEqual(t, len(values), 4)
	testutil.AssertEqual(t, values[0], any(int64(3)))
	testutil.AssertEqual(t, row.Map()["score"], any(9.25))
}

func TestFromRows(t *testing.T) {
	schema := Schema{{Name: "city", Type: Categorical}, {Name: "total", Type: Float}}
	tbl, err := FromRows(schema, [][]any{
		{"recife", 10},
		{"natal", nil},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, tbl.NumRows(), 2)

	total, _ := tbl.Column("total")
	testutil.AssertEqual(t, total.Value(0), any(10.0))
	testutil.AssertEqual(t, total.IsNull(1), true)

	_, err = FromRows(schema, [][]any{{"recife"}})
	testutil.AssertErrorIs(t, err, ErrLengthMismatch)

	_, err = FromRows(schema, [][]any{{1, 2}})
	testutil.AssertErrorIs(t, err, ErrTypeMismatch)
}

func TestBuilderDoesNotAliasInput(t *testing.T) {
	b := NewBuilder(Schema{{Name: "x", Type: Float}})
	row := []any{3}
	testutil.AssertNoError(t, b.Append(row...))
	testutil.AssertEqual(t, row[0], any(3))

	first, err := b.Build()
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, b.AppendMap(map[string]any{"x": 4.5}))

	testutil.AssertEqual(t, first.NumRows(), 1)
	testutil.AssertEqual(t, b.Len(), 2)
}

func TestEmpty(t *testing.T) {
	tbl, err := Empty(Schema{{Name: "a", Type: Integer}, {Name: "b", Type: Text}})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, tbl.NumRows(), 0)
	testutil.AssertEqual(t, tbl.NumColumns(), 2)
}

func TestEqual(t *testing.T) {
	a := peopleTable(t)
	b := peopleTable(t)
	testutil.AssertEqual(t, a.Equal(b), true)

	c, err := a.FillNulls("age", 0)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, a.Equal(c), false)

	nan := MustNew(MustColumn("f", Float, nanValue()))
	testutil.AssertEqual(t, nan.Equal(MustNew(MustColumn("f", Float, nanValue()))), true)
}

func TestMemoryUsage(t *testing.T) {
	ints := MustNew(MustColumn("n", Integer, 1, 2, 3))
	// 3 rows x 8 bytes plus the one-byte name
	testutil.AssertEqual(t, ints.MemoryUsage(), int64(25))

	text := MustColumn("t", Text, "aa", "aa", "aa", "aa")
	cat := MustColumn("t", Categorical, "aa", "aa", "aa", "aa")
	if cat.MemoryUsage() >= text.MemoryUsage() {
		t.Errorf("categorical %d should be smaller than text %d", cat.MemoryUsage(), text.MemoryUsage())
	}

	withNulls := MustNew(MustColumn("n", Integer, 1, nil, 3))
	testutil.AssertEqual(t, withNulls.MemoryUsage(), int64(28))
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"integer", Integer},
		{"INT", Integer},
		{"double", Float},
		{"string", Text},
		{"bool", Boolean},
		{"datetime", Timestamp},
		{"category", Categorical},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, got, tt.want)
		})
	}

	_, err := ParseType("blob")
	testutil.AssertError(t, err)
}

func TestTypeText(t *testing.T) {
	b, err := Categorical.MarshalText()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, string(b), "categorical")

	var typ Type
	testutil.AssertNoError(t, typ.UnmarshalText([]byte("float")))
	testutil.AssertEqual(t, typ, Float)

	_, err = Invalid.MarshalText()
	testutil.AssertError(t, err)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in      string
		typ     Type
		want    any
		wantErr bool
	}{
		{" 42 ", Integer, int64(42), false},
		{"4.2", Integer, nil, true},
		{"4.5", Float, 4.5, false},
		{"TRUE", Boolean, true, false},
		{"", Integer, nil, false},
		{"  ", Float, nil, false},
		{"NaN", Float, nil, false},
		{"", Text, nil, false},
		{" x ", Text, " x ", false},
		{"2024-03-01", Timestamp, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"yesterday", Timestamp, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.typ.String()+"/"+tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in, tt.typ)
			if tt.wantErr {
				if !errors.Is(err, ErrTypeMismatch) {
					t.Fatalf("error = %v, want ErrTypeMismatch", err)
				}
				return
			}
			testutil.AssertNoError(t, err)
			testutil.AssertEqual(t, got, tt.want)
		})
	}
}

func TestFormatValue(t *testing.T) {
	testutil.AssertEqual(t, FormatValue(nil), "")
	testutil.AssertEqual(t, FormatValue(int64(-3)), "-3")
	testutil.AssertEqual(t, FormatValue(2.5), "2.5")
	testutil.AssertEqual(t, FormatValue(true), "true")
	testutil.AssertEqual(t, FormatValue(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), "2024-01-02T03:04:05Z")
}
