package tableio

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/vnykmshr/tabflow/internal/testutil"
	"github.com/vnykmshr/tabflow/pkg/table"
)

func openSQLite(t *testing.T) (*sql.DB, string) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "warehouse.db")
	db, err := sql.Open("sqlite", dsn)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, dsn
}

func TestSQLAppendMode(t *testing.T) {
	_, dsn := openSQLite(t)
	ctx := context.Background()
	opts := Options{Format: "sql", Driver: "sqlite3", DSN: dsn, Table: "people"}

	w, err := NewWriter(opts)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Write(ctx, fixture(t)))

	opts.Mode = ModeAppend
	w, err = NewWriter(opts)
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, w.Write(ctx, fixture(t)))

	r, err := NewReader(Options{Format: "sql", Driver: "sqlite", DSN: dsn, Query: "SELECT id FROM people WHERE id > 2"})
	testutil.AssertNoError(t, err)
	out, err := r.Read(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.NumRows(), 4)

	// replace mode starts over
	opts.Mode = ModeReplace
	w, _ = NewWriter(opts)
	testutil.AssertNoError(t, w.Write(ctx, fixture(t)))
	r, _ = NewReader(Options{Format: "sql", Driver: "sqlite", DSN: dsn, Table: "people"})
	out, err = r.Read(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.NumRows(), 4)
}

func TestReadSQLDeclaredTypes(t *testing.T) {
	db, _ := openSQLite(t)
	ctx := context.Background()
	testutil.AssertNoError(t, WriteSQL(ctx, db, "sqlite", "people", fixture(t), ModeReplace))

	out, err := ReadSQL(ctx, db, `SELECT id, name, score, active, joined, tier FROM people ORDER BY id`, nil)
	testutil.AssertNoError(t, err)

	// categorical columns are stored as text
	want := fixture(t)
	want, err = want.Cast("tier", table.Text)
	testutil.AssertNoError(t, err)
	assertSameTable(t, out, want)
}

func TestReadSQLInfersExpressions(t *testing.T) {
	db, _ := openSQLite(t)
	out, err := ReadSQL(context.Background(), db, `SELECT 1 + 1 AS two, 'x' AS letter, 2.5 AS half`, nil)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, out.Schema().String(), "[two:integer, letter:text, half:float]")
}

func TestReadSQLSchemaMismatch(t *testing.T) {
	db, _ := openSQLite(t)
	_, err := ReadSQL(context.Background(), db, `SELECT 1 AS a`, table.Schema{{Name: "b", Type: table.Integer}})
	testutil.AssertErrorIs(t, err, table.ErrColumnNotFound)
}

func TestDeclaredType(t *testing.T) {
	tests := map[string]table.Type{
		"INTEGER":          table.Integer,
		"bigint":           table.Integer,
		"REAL":             table.Float,
		"DOUBLE PRECISION": table.Float,
		"NUMERIC":          table.Float,
		"BOOLEAN":          table.Boolean,
		"TIMESTAMPTZ":      table.Timestamp,
		"DATETIME":         table.Timestamp,
		"DATE":             table.Timestamp,
		"VARCHAR":          table.Text,
		"TEXT":             table.Text,
		"":                 table.Invalid,
		"BLOB":             table.Invalid,
	}
	for name, want := range tests {
		testutil.AssertEqual(t, declaredType(name), want)
	}
}

func TestStatements(t *testing.T) {
	schema := table.Schema{{Name: "id", Type: table.Integer}, {Name: "when", Type: table.Timestamp}}

	pg := dialects["postgres"]
	testutil.AssertEqual(t, createTableSQL(pg, "events", schema),
		`CREATE TABLE IF NOT EXISTS "events" ("id" BIGINT, "when" TIMESTAMPTZ)`)
	testutil.AssertEqual(t, insertSQL(pg, "events", schema.Names()),
		`INSERT INTO "events" ("id", "when") VALUES ($1, $2)`)

	my := dialects["mysql"]
	testutil.AssertEqual(t, insertSQL(my, "events", schema.Names()),
		"INSERT INTO `events` (`id`, `when`) VALUES (?, ?)")
	testutil.AssertEqual(t, doubleQuote(`a"b`), `"a""b"`)
}
