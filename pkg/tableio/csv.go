package tableio

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/vnykmshr/tabflow/pkg/table"
)

type csvReader struct {
	path   string
	schema table.Schema
	comma  rune
}

func newCSVReader(opts Options) (Reader, error) {
	if opts.Path == "" {
		return nil, configError("path", "", "cannot be empty")
	}
	comma, err := delimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}
	return &csvReader{path: opts.Path, schema: opts.Schema, comma: comma}, nil
}

func (r *csvReader) Read(ctx context.Context) (*table.Table, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(ctx, f, r.schema, r.comma)
}

// ReadCSV reads a table from csv data with a header row. When schema is
// nil every column type is inferred from its cells; otherwise the header
// must contain every schema column and cells are parsed into the declared
// types. Empty cells are nulls.
func ReadCSV(ctx context.Context, src io.Reader, schema table.Schema, comma rune) (*table.Table, error) {
	cr := csv.NewReader(src)
	if comma != 0 {
		cr.Comma = comma
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}

	cells := make([][]string, len(header))
	for row := 0; ; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		for i := range header {
			cells[i] = append(cells[i], rec[i])
		}
	}

	if schema == nil {
		cols := make([]*table.Column, len(header))
		for i, name := range header {
			c, err := textColumn(name, inferText(cells[i]), cells[i])
			if err != nil {
				return nil, err
			}
			cols[i] = c
		}
		return table.New(cols...)
	}

	position := make(map[string]int, len(header))
	for i, name := range header {
		position[name] = i
	}
	cols := make([]*table.Column, len(schema))
	for i, f := range schema {
		idx, ok := position[f.Name]
		if !ok {
			return nil, fmt.Errorf("csv: %w: %q not in header", table.ErrColumnNotFound, f.Name)
		}
		c, err := textColumn(f.Name, f.Type, cells[idx])
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		cols[i] = c
	}
	if len(cols) == 0 {
		return table.Empty(schema)
	}
	return table.New(cols...)
}

type csvWriter struct {
	path  string
	comma rune
}

func newCSVWriter(opts Options) (Writer, error) {
	if opts.Path == "" {
		return nil, configError("path", "", "cannot be empty")
	}
	if opts.Mode == ModeAppend {
		return nil, configError("mode", opts.Mode, "not supported by csv")
	}
	comma, err := delimiter(opts.Delimiter)
	if err != nil {
		return nil, err
	}
	return &csvWriter{path: opts.Path, comma: comma}, nil
}

func (w *csvWriter) Write(ctx context.Context, t *table.Table) error {
	return writeFile(w.path, func(dst io.Writer) error {
		return WriteCSV(ctx, dst, t, w.comma)
	})
}

// WriteCSV writes t as csv with a header row. Nulls become empty cells.
func WriteCSV(ctx context.Context, dst io.Writer, t *table.Table, comma rune) error {
	cw := csv.NewWriter(dst)
	if comma != 0 {
		cw.Comma = comma
	}
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}
	cols := t.Columns()
	rec := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, c := range cols {
			rec[j] = table.FormatValue(c.Value(i))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func delimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError {
		return 0, configError("delimiter", s, "must be a single character")
	}
	return r, nil
}

// writeFile writes to a temporary file next to path and renames it into
// place, so readers never see a partial file.
func writeFile(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tabflow-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
