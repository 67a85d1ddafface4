package table

import "fmt"

// Builder accumulates rows for a fixed schema. Values are checked as they
// are appended so a bad row is reported with its position.
type Builder struct {
	schema Schema
	values [][]any
	rows   int
}

// NewBuilder creates a builder for schema.
func NewBuilder(schema Schema) *Builder {
	return &Builder{
		schema: schema,
		values: make([][]any, len(schema)),
	}
}

// Append adds one row. Values follow schema order; nil is a null.
func (b *Builder) Append(values ...any) error {
	if len(values) != len(b.schema) {
		return fmt.Errorf("%w: row %d has %d values, want %d",
			ErrLengthMismatch, b.rows, len(values), len(b.schema))
	}
	row := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		nv, ok := normalize(b.schema[i].Type, v)
		if !ok {
			return fmt.Errorf("%w: column %q row %d: %T is not %s",
				ErrTypeMismatch, b.schema[i].Name, b.rows, v, b.schema[i].Type)
		}
		row[i] = nv
	}
	for i, v := range row {
		b.values[i] = append(b.values[i], v)
	}
	b.rows++
	return nil
}

// AppendMap adds one row keyed by column name. Missing keys are nulls.
func (b *Builder) AppendMap(row map[string]any) error {
	values := make([]any, len(b.schema))
	for i, f := range b.schema {
		values[i] = row[f.Name]
	}
	return b.Append(values...)
}

// Len returns the number of rows appended so far.
func (b *Builder) Len() int { return b.rows }

// Build returns the accumulated table. The builder can keep appending
// afterwards; later rows do not affect tables already built.
func (b *Builder) Build() (*Table, error) {
	cols := make([]*Column, len(b.schema))
	for i, f := range b.schema {
		c, err := NewColumn(f.Name, f.Type, b.values[i][:b.rows:b.rows])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return New(cols...)
}
