package runlog

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vnykmshr/tabflow/internal/testutil"
	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/table"
	"github.com/vnykmshr/tabflow/pkg/validate"
)

var quiet = slog.New(slog.DiscardHandler)

func runPipeline(t *testing.T, ids ...any) (*pipeline.Run, error) {
	t.Helper()
	runner := pipeline.NewWithConfig(pipeline.Config{Name: "orders", Logger: quiet})
	input := table.MustNew(
		table.MustColumn("id", table.Integer, ids...),
		table.MustColumn("customer", table.Text, make([]any, len(ids))...),
	)
	stages := []pipeline.Stage{
		pipeline.NewStage("names", func(_ context.Context, t *table.Table) (*table.Table, error) {
			return t, nil
		}, pipeline.WithValidation(validate.Completeness("customer")), pipeline.Advisory()),
		pipeline.NewStage("keys", func(_ context.Context, t *table.Table) (*table.Table, error) {
			return t, nil
		}, pipeline.WithValidation(validate.Uniqueness("id"))),
	}
	return runner.Execute(context.Background(), input, stages)
}

func TestSummarizeSuccess(t *testing.T) {
	run, err := runPipeline(t, 1, 2, 3)
	testutil.AssertNoError(t, err)

	s := Summarize(run, err)
	if s.ID == uuid.Nil {
		t.Error("summary should have an id")
	}
	testutil.AssertEqual(t, s.Pipeline, "orders")
	testutil.AssertEqual(t, s.Status, StatusSuccess)
	testutil.AssertEqual(t, s.Rows, 3)
	testutil.AssertEqual(t, s.Columns, 2)
	testutil.AssertEqual(t, len(s.Stages), 2)
	testutil.AssertEqual(t, s.FailedStage, "")
	testutil.AssertEqual(t, len(s.Warnings()), 1)
	testutil.AssertEqual(t, s.StartedAt.IsZero(), false)
}

func TestSummarizeFailure(t *testing.T) {
	run, err := runPipeline(t, 1, 1, 3)
	testutil.AssertError(t, err)

	s := Summarize(run, err)
	testutil.AssertEqual(t, s.Status, StatusFailed)
	testutil.AssertEqual(t, s.FailedStage, "keys")
	testutil.AssertEqual(t, s.Error, err.Error())
	testutil.AssertEqual(t, s.Rows, 0)
	testutil.AssertEqual(t, len(s.Stages), 2)

	other := Summarize(run, err)
	testutil.AssertNotEqual(t, other.ID, s.ID)
}

func TestSummarizeConfigurationError(t *testing.T) {
	s := Summarize(nil, tferrors.NewConfigurationError("pipeline", "stages", 0, "must not be empty"))
	testutil.AssertEqual(t, s.Status, StatusFailed)
	testutil.AssertEqual(t, s.FailedStage, "")
	testutil.AssertEqual(t, len(s.Stages), 0)
}

func TestEncodeDecode(t *testing.T) {
	run, err := runPipeline(t, 1, 1)
	s := Summarize(run, err)

	data, encErr := s.Encode()
	testutil.AssertNoError(t, encErr)
	got, decErr := Decode(data)
	testutil.AssertNoError(t, decErr)

	testutil.AssertEqual(t, got.ID, s.ID)
	testutil.AssertEqual(t, got.Status, s.Status)
	testutil.AssertEqual(t, got.FailedStage, "keys")
	testutil.AssertEqual(t, got.Duration, s.Duration)
	testutil.AssertEqual(t, got.StartedAt.Equal(s.StartedAt), true)
	testutil.AssertEqual(t, len(got.Stages), len(s.Stages))
	testutil.AssertEqual(t, got.Stages[1].StageName, "keys")
	testutil.AssertEqual(t, got.Stages[0].Warnings[0], s.Stages[0].Warnings[0])
}

func TestNewMemoryStore(t *testing.T) {
	if _, err := NewMemoryStore(0); !tferrors.IsConfigurationError(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewMemoryStore(3)
	testutil.AssertNoError(t, err)
	defer func() { _ = store.Close() }()

	saved := make([]Summary, 5)
	for i := range saved {
		pipe := "a"
		if i%2 == 1 {
			pipe = "b"
		}
		saved[i] = Summary{ID: uuid.New(), Pipeline: pipe, Status: StatusSuccess, Rows: i}
		testutil.AssertNoError(t, store.Save(ctx, saved[i]))
	}
	testutil.AssertEqual(t, store.Len(), 3)

	// Oldest two were evicted.
	_, err = store.Get(ctx, saved[0].ID)
	testutil.AssertErrorIs(t, err, ErrNotFound)
	got, err := store.Get(ctx, saved[4].ID)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got.Rows, 4)

	all, _ := store.Recent(ctx, "", 10)
	testutil.AssertEqual(t, len(all), 3)
	testutil.AssertEqual(t, all[0].Rows, 4)
	testutil.AssertEqual(t, all[2].Rows, 2)

	onlyA, _ := store.Recent(ctx, "a", 10)
	testutil.AssertEqual(t, len(onlyA), 2)
	testutil.AssertEqual(t, onlyA[0].Rows, 4)

	limited, _ := store.Recent(ctx, "", 1)
	testutil.AssertEqual(t, len(limited), 1)

	// Saving an existing id replaces in place.
	updated := saved[3]
	updated.Status = StatusFailed
	testutil.AssertNoError(t, store.Save(ctx, updated))
	testutil.AssertEqual(t, store.Len(), 3)
	got, _ = store.Get(ctx, saved[3].ID)
	testutil.AssertEqual(t, got.Status, StatusFailed)
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Save(context.Context, Summary) error {
	return errors.New("disk full")
}

func TestRecorder(t *testing.T) {
	store, _ := NewMemoryStore(10)
	runner := pipeline.NewWithConfig(pipeline.Config{
		Name:          "orders",
		Logger:        quiet,
		OnRunComplete: Recorder(store, time.Second, quiet),
	})

	input := table.MustNew(table.MustColumn("id", table.Integer, 1, 1))
	keys := pipeline.NewStage("keys", func(_ context.Context, t *table.Table) (*table.Table, error) {
		return t, nil
	}, pipeline.WithValidation(validate.Uniqueness("id")))
	_, err := runner.Execute(context.Background(), input, []pipeline.Stage{keys})
	testutil.AssertError(t, err)

	recent, _ := store.Recent(context.Background(), "orders", 5)
	testutil.AssertEqual(t, len(recent), 1)
	testutil.AssertEqual(t, recent[0].Status, StatusFailed)
	testutil.AssertEqual(t, recent[0].FailedStage, "keys")

	// A failing store never breaks the run.
	broken := Recorder(failingStore{store}, 0, quiet)
	run, err := runPipeline(t, 1, 2)
	broken(run, err)
}
