package tableio

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/tabflow/internal/testutil"
	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/metrics"
	"github.com/vnykmshr/tabflow/pkg/table"
)

var fixtureSchema = table.Schema{
	{Name: "id", Type: table.Integer},
	{Name: "name", Type: table.Text},
	{Name: "score", Type: table.Float},
	{Name: "active", Type: table.Boolean},
	{Name: "joined", Type: table.Timestamp},
	{Name: "tier", Type: table.Categorical},
}

func fixture(t *testing.T) *table.Table {
	t.Helper()
	ts := func(d int) time.Time { return time.Date(2024, time.January, d, 9, 30, 0, 0, time.UTC) }
	tbl, err := table.FromRows(fixtureSchema, [][]any{
		{1, "ana, maria", 8.5, true, ts(1), "gold"},
		{2, "bruno \"b\"", nil, false, ts(2), "silver"},
		{3, nil, 7.25, nil, nil, "gold"},
		{4, "duda", 10, true, ts(4), nil},
	})
	testutil.AssertNoError(t, err)
	return tbl
}

func assertSameTable(t *testing.T, got, want *table.Table) {
	t.Helper()
	if !got.Schema().Equal(want.Schema()) {
		t.Fatalf("schema = %s, want %s", got.Schema(), want.Schema())
	}
	if !got.Equal(want) {
		t.Fatalf("tables differ:\n got %v\nwant %v", got.Columns(), want.Columns())
	}
}

func roundTrip(t *testing.T, write, read Options) *table.Table {
	t.Helper()
	ctx := context.Background()

	w, err := NewWriter(write)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Write(ctx, fixture(t)))

	r, err := NewReader(read)
	testutil.AssertNoError(t, err)
	out, err := r.Read(ctx)
	testutil.AssertNoError(t, err)
	return out
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		opts Options
	}{
		{"csv", Options{Path: filepath.Join(dir, "people.csv")}},
		{"tsv", Options{Format: "csv", Path: filepath.Join(dir, "people.tsv"), Delimiter: `\t`}},
		{"json", Options{Path: filepath.Join(dir, "people.json")}},
		{"parquet", Options{Path: filepath.Join(dir, "people.parquet")}},
		{"sqlite", Options{Format: "sql", Driver: "sqlite", DSN: filepath.Join(dir, "people.db"), Table: "people"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			read := tt.opts
			read.Schema = fixtureSchema
			out := roundTrip(t, tt.opts, read)
			assertSameTable(t, out, fixture(t))
		})
	}
}

func TestParquetKeepsTypesWithoutSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.parquet")
	out := roundTrip(t, Options{Path: path}, Options{Path: path})
	assertSameTable(t, out, fixture(t))
}

type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestWriteParquetLeavesSinkOpen(t *testing.T) {
	var sink closeRecorder
	testutil.AssertNoError(t, WriteParquet(context.Background(), &sink, fixture(t)))
	if sink.closed {
		t.Error("WriteParquet closed the caller's writer")
	}
	if sink.Len() == 0 {
		t.Error("nothing written")
	}

	// The file writer must still be able to close and rename its temp file.
	path := filepath.Join(t.TempDir(), "out.parquet")
	w, err := NewWriter(Options{Path: path})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Write(context.Background(), fixture(t)))
	_, err = os.Stat(path)
	testutil.AssertNoError(t, err)
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]string{
		"a.csv":        "csv",
		"dir/B.TSV":    "csv",
		"x.json":       "json",
		"x.parquet":    "parquet",
		"x.pq":         "parquet",
		"x.xlsx":       "",
		"no_extension": "",
	}
	for path, want := range tests {
		testutil.AssertEqual(t, FormatFromPath(path), want)
	}
}

func TestNewReaderErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no format", Options{Path: "data.bin"}, tferrors.ErrInvalidConfiguration},
		{"unknown format", Options{Format: "xlsx"}, ErrUnsupportedFormat},
		{"csv without path", Options{Format: "csv"}, tferrors.ErrInvalidConfiguration},
		{"bad delimiter", Options{Path: "a.csv", Delimiter: ";;"}, tferrors.ErrInvalidConfiguration},
		{"sql bad driver", Options{Format: "sql", Driver: "oracle", DSN: "x", Query: "SELECT 1"}, tferrors.ErrInvalidConfiguration},
		{"sql without query", Options{Format: "sql", Driver: "sqlite", DSN: "x"}, tferrors.ErrInvalidConfiguration},
		{"mongo without collection", Options{Format: "mongo", URI: "mongodb://localhost", Database: "db"}, tferrors.ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewReader(tt.opts)
			testutil.AssertErrorIs(t, err, tt.want)
		})
	}
}

func TestNewWriterErrors(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"bad mode", Options{Path: "a.csv", Mode: "merge"}},
		{"append to file", Options{Path: "a.parquet", Mode: ModeAppend}},
		{"sql without table", Options{Format: "sql", Driver: "sqlite", DSN: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWriter(tt.opts)
			testutil.AssertErrorIs(t, err, tferrors.ErrInvalidConfiguration)
		})
	}
}

func TestOperationErrors(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.csv")
	r, err := NewReader(Options{Path: missing})
	testutil.AssertNoError(t, err)

	_, err = r.Read(context.Background())
	var operr *tferrors.OperationError
	if !errors.As(err, &operr) {
		t.Fatalf("expected *OperationError, got %v", err)
	}
	testutil.AssertEqual(t, operr.Module, "csv")
	testutil.AssertEqual(t, operr.Operation, "Read")
	testutil.AssertEqual(t, operr.Context, missing)
	testutil.AssertErrorIs(t, err, os.ErrNotExist)

	w, err := NewWriter(Options{Path: filepath.Join(t.TempDir(), "out.json")})
	testutil.AssertNoError(t, err)
	testutil.AssertError(t, w.Write(context.Background(), nil))
}

func TestMetrics(t *testing.T) {
	m := metrics.NewRegistry(prometheus.NewRegistry())
	path := filepath.Join(t.TempDir(), "m.csv")

	out := roundTrip(t, Options{Path: path, Metrics: m}, Options{Path: path, Metrics: m})
	testutil.AssertEqual(t, out.NumRows(), 4)

	testutil.AssertFloat(t, promtest.ToFloat64(m.RowsWritten.WithLabelValues("csv")), 4)
	testutil.AssertFloat(t, promtest.ToFloat64(m.RowsRead.WithLabelValues("csv")), 4)
	testutil.AssertEqual(t, promtest.CollectAndCount(m.IODuration), 2)
}

func TestRegisterFormat(t *testing.T) {
	RegisterReader("memory", func(Options) (Reader, error) { return staticReader{fixture(t)}, nil })
	defer delete(readers, "memory")

	r, err := NewReader(Options{Format: "MEMORY"})
	testutil.AssertNoError(t, err)
	out, err := r.Read(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.NumRows(), 4)

	// readable but not writable formats are not listed
	for _, f := range Formats() {
		testutil.AssertNotEqual(t, f, "memory")
	}
}

type staticReader struct{ t *table.Table }

func (s staticReader) Read(context.Context) (*table.Table, error) { return s.t, nil }

func TestInferText(t *testing.T) {
	tests := []struct {
		cells []string
		want  table.Type
	}{
		{[]string{"1", "2", ""}, table.Integer},
		{[]string{"1", "2.5"}, table.Float},
		{[]string{"true", "FALSE", " "}, table.Boolean},
		{[]string{"2024-01-01", "2024-02-01T10:00:00Z"}, table.Timestamp},
		{[]string{"1", "x"}, table.Text},
		{[]string{"", ""}, table.Text},
		{nil, table.Text},
	}
	for _, tt := range tests {
		testutil.AssertEqual(t, inferText(tt.cells), tt.want)
	}
}

func TestInferValues(t *testing.T) {
	testutil.AssertEqual(t, inferValues([]any{int64(1), nil, 2.5}), table.Float)
	testutil.AssertEqual(t, inferValues([]any{true, "x"}), table.Text)
	testutil.AssertEqual(t, inferValues([]any{nil}), table.Text)
	testutil.AssertEqual(t, inferValues([]any{time.Now()}), table.Timestamp)

	c, err := valueColumn("n", table.Integer, []any{2.0, int64(3), "4", nil})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, c.NullCount(), 1)

	_, err = valueColumn("n", table.Integer, []any{2.5})
	testutil.AssertError(t, err)

	c, err = valueColumn("f", table.Float, []any{math.Inf(1)})
	testutil.AssertNoError(t, err)
	v, _ := c.Float(0)
	testutil.AssertEqual(t, math.IsInf(v, 1), true)
}
