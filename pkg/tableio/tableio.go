package tableio

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tferrors "github.com/vnykmshr/tabflow/pkg/common/errors"
	"github.com/vnykmshr/tabflow/pkg/metrics"
	"github.com/vnykmshr/tabflow/pkg/table"
)

// ErrUnsupportedFormat is returned for a format with no registered reader
// or writer.
var ErrUnsupportedFormat = tferrors.ErrUnsupportedFormat

// Reader loads a table from a source.
type Reader interface {
	Read(ctx context.Context) (*table.Table, error)
}

// Writer stores a table in a sink.
type Writer interface {
	Write(ctx context.Context, t *table.Table) error
}

// Mode controls what a writer does with data already in the sink.
type Mode string

const (
	// ModeReplace discards existing data.
	ModeReplace Mode = "replace"

	// ModeAppend adds rows to existing data. File formats do not support it.
	ModeAppend Mode = "append"
)

// Options configures a reader or writer. Each format uses the fields it
// needs and ignores the rest.
type Options struct {
	// Format selects the implementation. When empty it is derived from the
	// Path extension.
	Format string `mapstructure:"format"`

	// Path is the file location for csv, json and parquet.
	Path string `mapstructure:"path"`

	// Schema declares column names and types. Readers parse values into it
	// instead of inferring types.
	Schema table.Schema `mapstructure:"schema"`

	// Delimiter is the csv field separator. Defaults to a comma.
	Delimiter string `mapstructure:"delimiter"`

	// Driver is the database/sql driver: sqlite, postgres or mysql.
	Driver string `mapstructure:"driver"`

	// DSN is the database connection string.
	DSN string `mapstructure:"dsn"`

	// Query is the statement a sql reader runs.
	Query string `mapstructure:"query"`

	// Table is the target table of a sql writer.
	Table string `mapstructure:"table"`

	// URI, Database and Collection locate a MongoDB collection.
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`

	// Filter is the MongoDB query document of a mongo reader.
	Filter map[string]any `mapstructure:"filter"`

	// Mode is the write mode. Defaults to ModeReplace.
	Mode Mode `mapstructure:"mode"`

	// Logger receives debug records for each read and write.
	Logger *slog.Logger `mapstructure:"-"`

	// Metrics records row counts and latencies when set.
	Metrics *metrics.Registry `mapstructure:"-"`
}

// ReaderFactory creates a reader from options.
type ReaderFactory func(opts Options) (Reader, error)

// WriterFactory creates a writer from options.
type WriterFactory func(opts Options) (Writer, error)

var (
	readers = map[string]ReaderFactory{
		"csv":     newCSVReader,
		"json":    newJSONReader,
		"parquet": newParquetReader,
		"sql":     newSQLReader,
		"mongo":   newMongoReader,
	}
	writers = map[string]WriterFactory{
		"csv":     newCSVWriter,
		"json":    newJSONWriter,
		"parquet": newParquetWriter,
		"sql":     newSQLWriter,
		"mongo":   newMongoWriter,
	}
)

// RegisterReader adds or replaces the reader of a format. It is not safe
// to call concurrently with NewReader.
func RegisterReader(format string, f ReaderFactory) {
	readers[strings.ToLower(format)] = f
}

// RegisterWriter adds or replaces the writer of a format. It is not safe
// to call concurrently with NewWriter.
func RegisterWriter(format string, f WriterFactory) {
	writers[strings.ToLower(format)] = f
}

// Formats returns the formats that have both a reader and a writer.
func Formats() []string {
	var out []string
	for f := range readers {
		if _, ok := writers[f]; ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// FormatFromPath guesses a file format from its extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		return "csv"
	case ".json":
		return "json"
	case ".parquet", ".pq":
		return "parquet"
	}
	return ""
}

// NewReader creates the reader for opts.Format.
func NewReader(opts Options) (Reader, error) {
	format, err := resolveFormat(&opts)
	if err != nil {
		return nil, err
	}
	f, ok := readers[format]
	if !ok {
		return nil, unsupported(format)
	}
	r, err := f(opts)
	if err != nil {
		return nil, err
	}
	return &instrumentedReader{reader: r, format: format, target: opts.target(), logger: opts.logger(), metrics: opts.Metrics}, nil
}

// NewWriter creates the writer for opts.Format.
func NewWriter(opts Options) (Writer, error) {
	format, err := resolveFormat(&opts)
	if err != nil {
		return nil, err
	}
	f, ok := writers[format]
	if !ok {
		return nil, unsupported(format)
	}
	switch opts.Mode {
	case "":
		opts.Mode = ModeReplace
	case ModeReplace, ModeAppend:
	default:
		return nil, configError("mode", opts.Mode, "must be replace or append")
	}
	w, err := f(opts)
	if err != nil {
		return nil, err
	}
	return &instrumentedWriter{writer: w, format: format, target: opts.target(), logger: opts.logger(), metrics: opts.Metrics}, nil
}

func resolveFormat(opts *Options) (string, error) {
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatFromPath(opts.Path)
	}
	if format == "" {
		return "", configError("format", opts.Format, "cannot be empty").
			WithHint("set format or use a path with a known extension")
	}
	opts.Format = format
	return format, nil
}

func unsupported(format string) error {
	return fmt.Errorf("tableio: %w %q (known: %s)", ErrUnsupportedFormat, format, strings.Join(Formats(), ", "))
}

func (o Options) target() string {
	switch {
	case o.Path != "":
		return o.Path
	case o.Table != "":
		return o.Table
	case o.Collection != "":
		return o.Collection
	}
	return o.Format
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func configError(field string, value any, reason string) *tferrors.ConfigurationError {
	return tferrors.NewConfigurationError("tableio", field, value, reason)
}

// instrumentedReader wraps every reader returned by NewReader with
// logging, metrics and OperationError wrapping.
type instrumentedReader struct {
	reader  Reader
	format  string
	target  string
	logger  *slog.Logger
	metrics *metrics.Registry
}

func (r *instrumentedReader) Read(ctx context.Context) (*table.Table, error) {
	start := time.Now()
	t, err := r.reader.Read(ctx)
	elapsed := time.Since(start)

	if r.metrics != nil {
		r.metrics.IODuration.WithLabelValues(r.format, "read").Observe(elapsed.Seconds())
	}
	if err != nil {
		return nil, tferrors.NewOperationError(r.format, "Read", err).WithContext(r.target)
	}
	if r.metrics != nil {
		r.metrics.RowsRead.WithLabelValues(r.format).Add(float64(t.NumRows()))
	}
	r.logger.Debug("table read",
		"format", r.format,
		"source", r.target,
		"rows", t.NumRows(),
		"columns", t.NumColumns(),
		"duration", elapsed)
	return t, nil
}

type instrumentedWriter struct {
	writer  Writer
	format  string
	target  string
	logger  *slog.Logger
	metrics *metrics.Registry
}

func (w *instrumentedWriter) Write(ctx context.Context, t *table.Table) error {
	if t == nil {
		return tferrors.NewOperationError(w.format, "Write", fmt.Errorf("table is nil")).WithContext(w.target)
	}
	start := time.Now()
	err := w.writer.Write(ctx, t)
	elapsed := time.Since(start)

	if w.metrics != nil {
		w.metrics.IODuration.WithLabelValues(w.format, "write").Observe(elapsed.Seconds())
	}
	if err != nil {
		return tferrors.NewOperationError(w.format, "Write", err).WithContext(w.target)
	}
	if w.metrics != nil {
		w.metrics.RowsWritten.WithLabelValues(w.format).Add(float64(t.NumRows()))
	}
	w.logger.Debug("table written",
		"format", w.format,
		"sink", w.target,
		"rows", t.NumRows(),
		"duration", elapsed)
	return nil
}
