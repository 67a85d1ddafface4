/*
Package table provides an immutable, typed, columnar table for pipeline stages.

Every column declares one of six semantic types (Integer, Float, Text,
Boolean, Timestamp, Categorical) and stores its values in a typed slice with
an optional null mask. Values are checked against the declared type when a
column is built, so a stage never has to guess what a column holds. A NaN
in a Float column is stored as a null.

# Building Tables

From columns:

	people := table.MustNew(
		table.MustColumn("id", table.Integer, 1, 2, 3),
		table.MustColumn("name", table.Text, "ana", nil, "caio"),
	)

From rows:

	b := table.NewBuilder(table.Schema{
		{Name: "city", Type: table.Categorical},
		{Name: "total", Type: table.Float},
	})
	b.Append("recife", 10)   // integers widen to float
	b.Append("natal", nil)   // nil is a null
	t, err := b.Build()

# Operations

All operations return a new table. The receiver is never modified and
unchanged columns are shared:

	adults := people.Filter(func(r table.Row) bool {
		age, ok := r.Int("age")
		return ok && age >= 18
	})
	sorted, _ := adults.Sort(table.Desc("age"), table.Asc("name"))
	clean, _ := sorted.DropNulls("name")
	dedup, _ := clean.DropDuplicates("id")

Type changes:

	t, err := raw.Cast("age", table.Integer)    // fails on the first bad value
	t, err := raw.Coerce("age", table.Integer)  // bad values become nulls

Joins and aggregation:

	joined, _ := orders.Join(customers, []string{"customer_id"}, table.LeftJoin)
	summary, _ := joined.GroupBy("region").Agg(
		table.Sum("amount"),
		table.Count("").Named("orders"),
	)

Reshaping and time series:

	wide, _ := sales.Pivot(table.PivotSpec{
		Index: []string{"seller"}, Columns: "month", Values: "amount", Fill: 0,
	})
	long, _ := wide.Melt([]string{"seller"}, nil, "month", "amount")
	daily, _ := events.Resample("at", 24*time.Hour, table.Sum("amount"))
	smooth, _ := daily.Rolling(7, table.Mean("amount_sum"))

# Duplicates

Duplicated marks rows equal to an earlier row. Rows are bucketed by an
xxhash fingerprint and then compared value by value, so hash collisions
never produce false duplicates. Nulls compare equal to nulls.

# Memory

MemoryUsage returns a deterministic estimate of the bytes held by the
table's columns. Pipeline runners use it to report per-stage memory deltas.
*/
package table
