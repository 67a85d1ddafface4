package tableio

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/vnykmshr/tabflow/pkg/table"
)

const mongoTimeout = 30 * time.Second

type mongoReader struct {
	uri        string
	database   string
	collection string
	filter     map[string]any
	schema     table.Schema
}

func newMongoReader(opts Options) (Reader, error) {
	if err := checkMongo(opts); err != nil {
		return nil, err
	}
	return &mongoReader{
		uri:        opts.URI,
		database:   opts.Database,
		collection: opts.Collection,
		filter:     opts.Filter,
		schema:     opts.Schema,
	}, nil
}

func checkMongo(opts Options) error {
	switch {
	case opts.URI == "":
		return configError("uri", "", "cannot be empty")
	case opts.Database == "":
		return configError("database", "", "cannot be empty")
	case opts.Collection == "":
		return configError("collection", "", "cannot be empty")
	}
	return nil
}

func connectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetTimeout(mongoTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return client, nil
}

func (r *mongoReader) Read(ctx context.Context) (*table.Table, error) {
	client, err := connectMongo(r.uri)
	if err != nil {
		return nil, err
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	filter := bson.M{}
	for k, v := range r.filter {
		filter[k] = v
	}
	cursor, err := client.Database(r.database).Collection(r.collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return FromDocuments(docs, r.schema)
}

// FromDocuments converts documents into a table. The _id field is dropped.
// Without a schema, columns follow the order in which fields first appear
// and types are inferred; nested documents and arrays become extended
// JSON text.
func FromDocuments(docs []bson.D, schema table.Schema) (*table.Table, error) {
	if schema == nil {
		seen := make(map[string]bool)
		for _, doc := range docs {
			for _, e := range doc {
				if e.Key == "_id" || seen[e.Key] {
					continue
				}
				seen[e.Key] = true
				schema = append(schema, table.Field{Name: e.Key})
			}
		}
	}

	position := make(map[string]int, len(schema))
	for i, f := range schema {
		position[f.Name] = i
	}
	values := make([][]any, len(schema))
	for i := range values {
		values[i] = make([]any, len(docs))
	}
	for r, doc := range docs {
		for _, e := range doc {
			i, ok := position[e.Key]
			if !ok {
				continue
			}
			v, err := fromBSON(e.Value)
			if err != nil {
				return nil, fmt.Errorf("mongo: field %q document %d: %w", e.Key, r, err)
			}
			values[i][r] = v
		}
	}

	cols := make([]*table.Column, len(schema))
	for i, f := range schema {
		c, err := valueColumn(f.Name, f.Type, values[i])
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		cols[i] = c
	}
	if len(cols) == 0 {
		return table.Empty(schema)
	}
	return table.New(cols...)
}

func fromBSON(v any) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, int64, float64:
		return x, nil
	case int32:
		return int64(x), nil
	case bson.DateTime:
		return x.Time().UTC(), nil
	case bson.ObjectID:
		return x.Hex(), nil
	case bson.Decimal128:
		return x.String(), nil
	case bson.Null, bson.Undefined:
		return nil, nil
	}
	b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

type mongoWriter struct {
	uri        string
	database   string
	collection string
	mode       Mode
}

func newMongoWriter(opts Options) (Writer, error) {
	if err := checkMongo(opts); err != nil {
		return nil, err
	}
	return &mongoWriter{
		uri:        opts.URI,
		database:   opts.Database,
		collection: opts.Collection,
		mode:       opts.Mode,
	}, nil
}

func (w *mongoWriter) Write(ctx context.Context, t *table.Table) error {
	client, err := connectMongo(w.uri)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.WithoutCancel(ctx))

	coll := client.Database(w.database).Collection(w.collection)
	if w.mode != ModeAppend {
		if err := coll.Drop(ctx); err != nil {
			return fmt.Errorf("drop: %w", err)
		}
	}
	docs := ToDocuments(t)
	if len(docs) == 0 {
		return nil
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// ToDocuments converts each row into a document with fields in column
// order. Nulls are stored as BSON null so every document has every field.
func ToDocuments(t *table.Table) []any {
	cols := t.Columns()
	docs := make([]any, t.NumRows())
	for i := range docs {
		doc := make(bson.D, len(cols))
		for j, c := range cols {
			doc[j] = bson.E{Key: c.Name(), Value: c.Value(i)}
		}
		docs[i] = doc
	}
	return docs
}
