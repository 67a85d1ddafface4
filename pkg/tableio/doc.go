/*
Package tableio reads tables from sources and writes them to sinks.

Supported formats:

  - csv: header row, optional schema, per-column type inference
  - json: array of objects, decoded with sonic
  - parquet: Apache Arrow pqarrow with snappy compression
  - sql: database/sql with the sqlite, postgres and mysql drivers
  - mongo: MongoDB collections

# Usage

Readers and writers are created from Options, usually decoded from a
pipeline definition:

	r, err := tableio.NewReader(tableio.Options{
		Path: "orders.csv",
		Schema: table.Schema{
			{Name: "order_id", Type: table.Integer},
			{Name: "amount", Type: table.Float},
		},
	})
	t, err := r.Read(ctx)

	w, err := tableio.NewWriter(tableio.Options{
		Format: "sql",
		Driver: "sqlite",
		DSN:    "warehouse.db",
		Table:  "orders",
		Mode:   tableio.ModeReplace,
	})
	err = w.Write(ctx, t)

Every reader and writer returned by NewReader and NewWriter logs at debug
level, records row counts and latencies when Options.Metrics is set, and
wraps failures in an *errors.OperationError naming the format and target.

# Round Trips

Writing a table and reading it back with the same schema preserves its
shape and declared column types for every format. File writers replace
the target atomically. SQL and MongoDB writers honour ModeAppend.
*/
package tableio
