package tableio

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/vnykmshr/tabflow/pkg/table"
)

// categoricalKey is the schema metadata key listing categorical columns,
// which Parquet stores as plain strings.
const categoricalKey = "tabflow.categorical"

type parquetReader struct {
	path   string
	schema table.Schema
}

func newParquetReader(opts Options) (Reader, error) {
	if opts.Path == "" {
		return nil, configError("path", "", "cannot be empty")
	}
	return &parquetReader{path: opts.Path, schema: opts.Schema}, nil
}

func (r *parquetReader) Read(ctx context.Context) (*table.Table, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	mem := memory.DefaultAllocator
	at, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("parquet: %w", err)
	}
	defer at.Release()

	t, err := fromArrow(at)
	if err != nil {
		return nil, err
	}
	return conform(t, r.schema)
}

// conform selects the schema columns in order and casts those whose type
// differs. A nil schema leaves t unchanged.
func conform(t *table.Table, schema table.Schema) (*table.Table, error) {
	if schema == nil {
		return t, nil
	}
	out, err := t.Select(schema.Names()...)
	if err != nil {
		return nil, err
	}
	for _, f := range schema {
		if out, err = out.Cast(f.Name, f.Type); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func fromArrow(at arrow.Table) (*table.Table, error) {
	schema := at.Schema()
	categorical := make(map[string]bool)
	md := schema.Metadata()
	if i := md.FindKey(categoricalKey); i >= 0 {
		for _, name := range strings.Split(md.Values()[i], ",") {
			categorical[name] = true
		}
	}

	cols := make([]*table.Column, 0, at.NumCols())
	for i := 0; i < int(at.NumCols()); i++ {
		field := schema.Field(i)
		typ, err := tableType(field.Type)
		if err != nil {
			return nil, fmt.Errorf("parquet: column %q: %w", field.Name, err)
		}
		if typ == table.Text && categorical[field.Name] {
			typ = table.Categorical
		}

		values := make([]any, 0, at.NumRows())
		for _, chunk := range at.Column(i).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				values = append(values, arrowValue(chunk, j))
			}
		}
		c, err := table.NewColumn(field.Name, typ, values)
		if err != nil {
			return nil, fmt.Errorf("parquet: %w", err)
		}
		cols = append(cols, c)
	}
	return table.New(cols...)
}

func tableType(dt arrow.DataType) (table.Type, error) {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32:
		return table.Integer, nil
	case arrow.FLOAT32, arrow.FLOAT64:
		return table.Float, nil
	case arrow.STRING, arrow.LARGE_STRING:
		return table.Text, nil
	case arrow.BOOL:
		return table.Boolean, nil
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return table.Timestamp, nil
	}
	return table.Invalid, fmt.Errorf("unsupported arrow type %s", dt)
}

func arrowValue(a arrow.Array, i int) any {
	if a.IsNull(i) {
		return nil
	}
	switch x := a.(type) {
	case *array.Int8:
		return int64(x.Value(i))
	case *array.Int16:
		return int64(x.Value(i))
	case *array.Int32:
		return int64(x.Value(i))
	case *array.Int64:
		return x.Value(i)
	case *array.Uint8:
		return int64(x.Value(i))
	case *array.Uint16:
		return int64(x.Value(i))
	case *array.Uint32:
		return int64(x.Value(i))
	case *array.Float32:
		return float64(x.Value(i))
	case *array.Float64:
		return x.Value(i)
	case *array.String:
		return x.Value(i)
	case *array.LargeString:
		return x.Value(i)
	case *array.Boolean:
		return x.Value(i)
	case *array.Timestamp:
		unit := x.DataType().(*arrow.TimestampType).Unit
		return x.Value(i).ToTime(unit).UTC()
	case *array.Date32:
		return x.Value(i).ToTime().UTC()
	case *array.Date64:
		return x.Value(i).ToTime().UTC()
	}
	return nil
}

type parquetWriter struct {
	path string
}

func newParquetWriter(opts Options) (Writer, error) {
	if opts.Path == "" {
		return nil, configError("path", "", "cannot be empty")
	}
	if opts.Mode == ModeAppend {
		return nil, configError("mode", opts.Mode, "not supported by parquet")
	}
	return &parquetWriter{path: opts.Path}, nil
}

func (w *parquetWriter) Write(ctx context.Context, t *table.Table) error {
	return writeFile(w.path, func(dst io.Writer) error {
		return WriteParquet(ctx, dst, t)
	})
}

// WriteParquet writes t as a single row group compressed with snappy.
// Timestamps are stored with microsecond precision in UTC. dst is never
// closed, even when it implements io.Closer.
func WriteParquet(ctx context.Context, dst io.Writer, t *table.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	schema := arrowSchema(t.Schema())

	rec, err := toArrow(schema, t)
	if err != nil {
		return err
	}
	defer rec.Release()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	// pqarrow closes a sink that is an io.Closer; hide Close from it.
	sink := struct{ io.Writer }{dst}
	fw, err := pqarrow.NewFileWriter(schema, sink, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return fmt.Errorf("parquet: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return fmt.Errorf("parquet: %w", err)
	}
	return fw.Close()
}

func arrowSchema(s table.Schema) *arrow.Schema {
	fields := make([]arrow.Field, len(s))
	var categorical []string
	for i, f := range s {
		fields[i] = arrow.Field{Name: f.Name, Type: arrowType(f.Type), Nullable: true}
		if f.Type == table.Categorical {
			categorical = append(categorical, f.Name)
		}
	}
	var md *arrow.Metadata
	if len(categorical) > 0 {
		m := arrow.NewMetadata([]string{categoricalKey}, []string{strings.Join(categorical, ",")})
		md = &m
	}
	return arrow.NewSchema(fields, md)
}

func arrowType(typ table.Type) arrow.DataType {
	switch typ {
	case table.Integer:
		return arrow.PrimitiveTypes.Int64
	case table.Float:
		return arrow.PrimitiveTypes.Float64
	case table.Boolean:
		return arrow.FixedWidthTypes.Boolean
	case table.Timestamp:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	}
	return arrow.BinaryTypes.String
}

func toArrow(schema *arrow.Schema, t *table.Table) (arrow.Record, error) {
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for i, c := range t.Columns() {
		fb := b.Field(i)
		fb.Reserve(c.Len())
		for j := 0; j < c.Len(); j++ {
			if c.IsNull(j) {
				fb.AppendNull()
				continue
			}
			switch bb := fb.(type) {
			case *array.Int64Builder:
				v, _ := c.Int(j)
				bb.Append(v)
			case *array.Float64Builder:
				v, _ := c.Float(j)
				bb.Append(v)
			case *array.BooleanBuilder:
				v, _ := c.Bool(j)
				bb.Append(v)
			case *array.TimestampBuilder:
				v, _ := c.Time(j)
				bb.Append(arrow.Timestamp(v.UnixMicro()))
			case *array.StringBuilder:
				v, _ := c.String(j)
				bb.Append(v)
			default:
				return nil, fmt.Errorf("parquet: no builder for column %q", c.Name())
			}
		}
	}
	return b.NewRecord(), nil
}

