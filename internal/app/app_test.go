package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vnykmshr/tabflow/internal/config"
	"github.com/vnykmshr/tabflow/internal/testutil"
	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/runlog"
	"github.com/vnykmshr/tabflow/pkg/tableio"
)

var quiet = slog.New(slog.DiscardHandler)

const ordersCSV = `order_id,customer,amount
1,ana,10.5
2,bia,20
2,bia,20
3,,7.25
`

func ordersConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "orders.csv")
	testutil.AssertNoError(t, os.WriteFile(in, []byte(ordersCSV), 0o644))

	return &config.Config{
		Name:   "orders",
		Log:    config.LogConfig{Level: "info", Format: "text", Output: "stderr"},
		Source: tableio.Options{Path: in},
		Stages: []config.StageConfig{
			{Name: "drop_incomplete", Transform: config.TransformConfig{Kind: "drop_nulls", Params: map[string]any{"columns": []any{"customer"}}}},
			{Name: "dedupe", Transform: config.TransformConfig{Kind: "drop_duplicates"}, Validate: []config.RuleConfig{
				{Rule: "uniqueness", Params: map[string]any{"columns": []any{"order_id"}}},
			}},
		},
		Quality: config.QualityConfig{MaxDuplicates: -1},
		Sink:    tableio.Options{Path: filepath.Join(dir, "out.json")},
	}
}

func TestRun(t *testing.T) {
	cfg := ordersConfig(t)
	a, err := New(cfg, Options{Logger: quiet})
	testutil.AssertNoError(t, err)
	defer func() { _ = a.Close() }()

	testutil.AssertEqual(t, a.Name(), "orders")
	testutil.AssertEqual(t, len(a.Stages()), 2)

	res, err := a.Run(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, res.Run.Table.NumRows(), 2)
	testutil.AssertEqual(t, res.Summary.Status, runlog.StatusSuccess)
	testutil.AssertEqual(t, res.Report.RowCount, 2)
	testutil.AssertEqual(t, res.Report.DuplicateRows, 0)

	out, err := os.ReadFile(cfg.Sink.Path)
	testutil.AssertNoError(t, err)
	if !strings.Contains(string(out), `"customer":"bia"`) {
		t.Errorf("sink missing rows: %s", out)
	}

	recent, err := a.History().Recent(context.Background(), "orders", 5)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(recent), 1)
	testutil.AssertEqual(t, recent[0].ID, res.Summary.ID)
}

func TestRunFatalValidationSkipsSink(t *testing.T) {
	cfg := ordersConfig(t)
	// Without deduplication the uniqueness rule sees the repeated key.
	cfg.Stages[1].Transform = config.TransformConfig{Kind: "select", Params: map[string]any{"columns": []any{"order_id", "customer", "amount"}}}

	a, err := New(cfg, Options{Logger: quiet})
	testutil.AssertNoError(t, err)
	defer func() { _ = a.Close() }()

	res, err := a.Run(context.Background())
	testutil.AssertErrorIs(t, err, tferrors.ErrStageFailed)
	testutil.AssertEqual(t, res.Summary.Status, runlog.StatusFailed)
	testutil.AssertEqual(t, res.Summary.FailedStage, "dedupe")
	if res.Report != nil {
		t.Error("failed run should have no report")
	}

	if _, statErr := os.Stat(cfg.Sink.Path); !os.IsNotExist(statErr) {
		t.Errorf("sink should not be written, stat err = %v", statErr)
	}
}

func TestRunMissingSource(t *testing.T) {
	cfg := ordersConfig(t)
	cfg.Source.Path = filepath.Join(t.TempDir(), "nope.csv")

	a, err := New(cfg, Options{Logger: quiet})
	testutil.AssertNoError(t, err)
	defer func() { _ = a.Close() }()

	_, err = a.Run(context.Background())
	testutil.AssertErrorIs(t, err, os.ErrNotExist)
}

func TestNewErrors(t *testing.T) {
	cfg := ordersConfig(t)
	cfg.Stages[0].Transform.Kind = "teleport"
	_, err := New(cfg, Options{Logger: quiet})
	if !tferrors.IsConfigurationError(err) {
		t.Errorf("unknown transform: expected ConfigurationError, got %v", err)
	}

	cfg = ordersConfig(t)
	cfg.Source = tableio.Options{Format: "xlsx"}
	_, err = New(cfg, Options{Logger: quiet})
	testutil.AssertErrorIs(t, err, tferrors.ErrUnsupportedFormat)

	cfg = ordersConfig(t)
	cfg.Sink.Mode = tableio.ModeAppend
	_, err = New(cfg, Options{Logger: quiet})
	if !tferrors.IsConfigurationError(err) {
		t.Errorf("append to json: expected ConfigurationError, got %v", err)
	}
}

func TestTrigger(t *testing.T) {
	cfg := ordersConfig(t)
	a, err := New(cfg, Options{Logger: quiet})
	testutil.AssertNoError(t, err)
	defer func() { _ = a.Close() }()

	_, err = a.Trigger()
	testutil.AssertError(t, err)

	cfg.Trigger = config.TriggerConfig{Watch: cfg.Source.Path, Debounce: 20 * time.Millisecond}
	tr, err := a.Trigger()
	testutil.AssertNoError(t, err)
	defer tr.Stop()
	testutil.AssertNoError(t, tr.Start())

	testutil.AssertNoError(t, os.WriteFile(cfg.Source.Path, []byte(ordersCSV+"4,caio,1\n"), 0o644))

	testutil.Eventually(t, func() bool {
		recent, _ := a.History().Recent(context.Background(), "orders", 5)
		return len(recent) >= 1 && recent[0].Rows == 3
	}, 3*time.Second, 10*time.Millisecond)
}

func TestNewMetrics(t *testing.T) {
	m, reg := NewMetrics()
	cfg := ordersConfig(t)
	a, err := New(cfg, Options{Logger: quiet, Metrics: m})
	testutil.AssertNoError(t, err)
	defer func() { _ = a.Close() }()

	_, err = a.Run(context.Background())
	testutil.AssertNoError(t, err)

	families, err := reg.Gather()
	testutil.AssertNoError(t, err)
	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{"tabflow_pipeline_runs_total", "tabflow_io_rows_read_total", "go_goroutines"} {
		if !found[name] {
			t.Errorf("metric %s not gathered", name)
		}
	}
}
