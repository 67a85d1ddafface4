package integration

import (
	"context"
	"testing"

	"github.com/vnykmshr/tabflow/internal/testutil"
	"github.com/vnykmshr/tabflow/pkg/batch"
	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/runlog"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// TestBatchRecordsEveryRun runs several pipelines concurrently, each with
// its own runner, and checks every run lands in the shared history.
func TestBatchRecordsEveryRun(t *testing.T) {
	store, err := runlog.NewMemoryStore(10)
	testutil.AssertNoError(t, err)
	record := runlog.Recorder(store, 0, quiet)

	b, err := batch.NewWithConfig(batch.Config{Name: "nightly", Workers: 2, Logger: quiet})
	testutil.AssertNoError(t, err)

	extracts := map[string]*table.Table{
		"north": table.MustNew(
			table.MustColumn("order_id", table.Integer, 1, 2, 3),
			table.MustColumn("customer", table.Text, "ana", "bia", "caio"),
			table.MustColumn("amount", table.Float, 1.0, 2.0, 3.0),
			table.MustColumn("paid", table.Boolean, true, true, false),
		),
		// order 7 appears twice with different amounts.
		"south": table.MustNew(
			table.MustColumn("order_id", table.Integer, 7, 7),
			table.MustColumn("customer", table.Text, "dora", "dora"),
			table.MustColumn("amount", table.Float, 5.0, 6.0),
			table.MustColumn("paid", table.Boolean, true, true),
		),
		"east": table.MustNew(
			table.MustColumn("order_id", table.Integer, 9),
			table.MustColumn("customer", table.Text, "eva"),
			table.MustColumn("amount", table.Float, 4.5),
			table.MustColumn("paid", table.Boolean, true),
		),
	}

	regions := []string{"north", "south", "east"}
	for _, region := range regions {
		runner := pipeline.NewWithConfig(pipeline.Config{Name: region, Logger: quiet, OnRunComplete: record})
		testutil.AssertNoError(t, b.Submit(batch.Job{
			Name:   region,
			Table:  extracts[region],
			Stages: orderStages(),
			Runner: runner,
		}))
	}

	outcomes := b.Wait()
	testutil.AssertEqual(t, len(outcomes), 3)
	testutil.AssertEqual(t, len(batch.Failed(outcomes)), 1)
	testutil.AssertEqual(t, outcomes[1].Job, "south")
	testutil.AssertEqual(t, outcomes[1].Status(), "failure")

	ctx := context.Background()
	all, err := store.Recent(ctx, "", 10)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(all), 3)

	south, err := store.Recent(ctx, "south", 10)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(south), 1)
	testutil.AssertEqual(t, south[0].Status, runlog.StatusFailed)
	testutil.AssertEqual(t, south[0].FailedStage, "dedupe")

	north, err := store.Recent(ctx, "north", 10)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, north[0].Status, runlog.StatusSuccess)
	testutil.AssertEqual(t, north[0].Rows, 2)
	testutil.AssertEqual(t, len(north[0].Stages), 3)

	got, err := store.Get(ctx, north[0].ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Pipeline, "north")
}
