package table

import (
	"fmt"
	"testing"
)

func benchTable(b *testing.B, rows int) *Table {
	b.Helper()
	ids := make([]any, rows)
	names := make([]any, rows)
	for i := range ids {
		ids[i] = i % (rows / 2)
		names[i] = fmt.Sprintf("name-%d", i%(rows/2))
	}
	id, err := NewColumn("id", Integer, ids)
	if err != nil {
		b.Fatal(err)
	}
	name, err := NewColumn("name", Text, names)
	if err != nil {
		b.Fatal(err)
	}
	return MustNew(id, name)
}

// BenchmarkDuplicated measures fingerprint-based duplicate detection.
func BenchmarkDuplicated(b *testing.B) {
	tbl := benchTable(b, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tbl.Duplicated(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSort measures a single-key stable sort.
func BenchmarkSort(b *testing.B) {
	tbl := benchTable(b, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tbl.Sort(Desc("id")); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkGroupBy measures grouping with two aggregations.
func BenchmarkGroupBy(b *testing.B) {
	tbl := benchTable(b, 10000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := tbl.GroupBy("name").Agg(Count(""), Sum("id")); err != nil {
			b.Fatal(err)
		}
	}
}
