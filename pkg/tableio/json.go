package tableio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"github.com/vnykmshr/tabflow/pkg/table"
)

// jsonAPI keeps numbers as json.Number so integers survive decoding.
var jsonAPI = sonic.Config{UseNumber: true}.Froze()

type jsonReader struct {
	path   string
	schema table.Schema
}

func newJSONReader(opts Options) (Reader, error) {
	if opts.Path == "" {
		return nil, configError("path", "", "cannot be empty")
	}
	return &jsonReader{path: opts.Path, schema: opts.Schema}, nil
}

func (r *jsonReader) Read(ctx context.Context) (*table.Table, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, err
	}
	return ReadJSON(ctx, data, r.schema)
}

// ReadJSON decodes an array of objects. With a schema, values are parsed
// into the declared types and keys outside the schema are ignored. Without
// one, every key becomes a column, in name order, with an inferred type.
// Missing keys and JSON nulls are nulls; nested values become JSON text.
func ReadJSON(ctx context.Context, data []byte, schema table.Schema) (*table.Table, error) {
	var records []map[string]any
	if err := jsonAPI.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if schema == nil {
		keys := make(map[string]struct{})
		for _, rec := range records {
			for k := range rec {
				keys[k] = struct{}{}
			}
		}
		for k := range keys {
			schema = append(schema, table.Field{Name: k})
		}
		sort.Slice(schema, func(i, j int) bool { return schema[i].Name < schema[j].Name })
	}

	cols := make([]*table.Column, len(schema))
	for i, f := range schema {
		values := make([]any, len(records))
		for r, rec := range records {
			v, err := fromJSON(rec[f.Name])
			if err != nil {
				return nil, fmt.Errorf("json: column %q row %d: %w", f.Name, r, err)
			}
			values[r] = v
		}
		typ := f.Type
		if typ == table.Invalid {
			typ = inferJSON(values)
		}
		c, err := valueColumn(f.Name, typ, values)
		if err != nil {
			return nil, fmt.Errorf("json: %w", err)
		}
		cols[i] = c
	}
	if len(cols) == 0 {
		return table.Empty(schema)
	}
	return table.New(cols...)
}

// inferJSON is inferValues, except that a column holding only strings that
// all parse as timestamps becomes a timestamp column.
func inferJSON(values []any) table.Type {
	typ := inferValues(values)
	if typ != table.Text {
		return typ
	}
	cells := make([]string, 0, len(values))
	for _, v := range values {
		switch s := v.(type) {
		case nil:
		case string:
			cells = append(cells, s)
		default:
			return table.Text
		}
	}
	if len(cells) > 0 && inferText(cells) == table.Timestamp {
		return table.Timestamp
	}
	return table.Text
}

func fromJSON(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool:
		return x, nil
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return x.Float64()
	case float64:
		return x, nil
	}
	return sonic.MarshalString(v)
}

type jsonWriter struct {
	path string
}

func newJSONWriter(opts Options) (Writer, error) {
	if opts.Path == "" {
		return nil, configError("path", "", "cannot be empty")
	}
	if opts.Mode == ModeAppend {
		return nil, configError("mode", opts.Mode, "not supported by json")
	}
	return &jsonWriter{path: opts.Path}, nil
}

func (w *jsonWriter) Write(ctx context.Context, t *table.Table) error {
	return writeFile(w.path, func(dst io.Writer) error {
		return WriteJSON(ctx, dst, t)
	})
}

// WriteJSON writes t as an array of objects with keys in column order.
// Timestamps are RFC 3339 strings; nulls, NaN and infinities are null.
func WriteJSON(ctx context.Context, dst io.Writer, t *table.Table) error {
	bw := bufio.NewWriter(dst)
	cols := t.Columns()

	keys := make([][]byte, len(cols))
	for i, c := range cols {
		k, err := sonic.Marshal(c.Name())
		if err != nil {
			return err
		}
		keys[i] = k
	}

	bw.WriteString("[")
	for i := 0; i < t.NumRows(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  {")
		for j, c := range cols {
			if j > 0 {
				bw.WriteString(",")
			}
			bw.Write(keys[j])
			bw.WriteString(":")
			v, err := toJSON(c.Value(i))
			if err != nil {
				return err
			}
			bw.Write(v)
		}
		bw.WriteString("}")
	}
	if t.NumRows() > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return bw.Flush()
}

func toJSON(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return []byte("null"), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return []byte("null"), nil
		}
	case time.Time:
		return sonic.Marshal(x.Format(time.RFC3339Nano))
	}
	return sonic.Marshal(v)
}
