package pipeline

import (
	"context"
	"log/slog"
	"testing"

	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/validate"
)

func benchTable(rows int) *table.Table {
	b := table.NewBuilder(table.Schema{
		{Name: "id", Type: table.Integer},
		{Name: "group", Type: table.Text},
		{Name: "value", Type: table.Float},
	})
	groups := []string{"a", "b", "c", "d"}
	for i := 0; i < rows; i++ {
		if err := b.Append(i, groups[i%len(groups)], float64(i)*0.5); err != nil {
			panic(err)
		}
	}
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func BenchmarkExecute(b *testing.B) {
	r := NewWithConfig(Config{Logger: slog.New(slog.DiscardHandler)})
	input := benchTable(10000)
	stages := []Stage{
		NewStage("filter", func(_ context.Context, t *table.Table) (*table.Table, error) {
			return t.Filter(func(row table.Row) bool {
				v, _ := row.Float("value")
				return v > 100
			}), nil
		}),
		NewStage("unique", identity, WithValidation(validate.Uniqueness("id"))),
		NewStage("sort", func(_ context.Context, t *table.Table) (*table.Table, error) {
			return t.Sort(table.Desc("value"))
		}),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Execute(context.Background(), input, stages); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExecuteTrackHeap(b *testing.B) {
	r := NewWithConfig(Config{Logger: slog.New(slog.DiscardHandler), TrackHeap: true})
	input := benchTable(1000)
	stages := []Stage{NewStage("noop", identity)}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Execute(context.Background(), input, stages); err != nil {
			b.Fatal(err)
		}
	}
}
