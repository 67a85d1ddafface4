package runlog_test

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/runlog"
	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/validate"
)

func ExampleRecorder() {
	quiet := slog.New(slog.DiscardHandler)
	store, _ := runlog.NewMemoryStore(10)

	runner := pipeline.NewWithConfig(pipeline.Config{
		Name:          "inventory",
		Logger:        quiet,
		OnRunComplete: runlog.Recorder(store, time.Second, quiet),
	})

	check := pipeline.NewStage("check_sku", func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t, nil
	}, pipeline.WithValidation(validate.Uniqueness("sku")))

	for _, skus := range [][]any{{"a", "b"}, {"a", "a"}} {
		input := table.MustNew(table.MustColumn("sku", table.Text, skus...))
		_, _ = runner.Execute(context.Background(), input, []pipeline.Stage{check})
	}

	recent, _ := store.Recent(context.Background(), "inventory", 5)
	for _, s := range recent {
		fmt.Println(s.Status, s.FailedStage, len(s.Stages))
	}
	// Output:
	// failed check_sku 1
	// success  1
}
