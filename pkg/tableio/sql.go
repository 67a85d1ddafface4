package tableio

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/vnykmshr/tabflow/pkg/table"
)

// dialect captures the differences between the supported databases.
type dialect struct {
	driver string
	quote  func(string) string
	param  func(n int) string
	types  map[table.Type]string
}

var dialects = map[string]dialect{
	"sqlite": {
		driver: "sqlite",
		quote:  doubleQuote,
		param:  func(int) string { return "?" },
		types: map[table.Type]string{
			table.Integer: "INTEGER", table.Float: "REAL", table.Text: "TEXT",
			table.Categorical: "TEXT", table.Boolean: "BOOLEAN", table.Timestamp: "TIMESTAMP",
		},
	},
	"postgres": {
		driver: "postgres",
		quote:  doubleQuote,
		param:  func(n int) string { return fmt.Sprintf("$%d", n) },
		types: map[table.Type]string{
			table.Integer: "BIGINT", table.Float: "DOUBLE PRECISION", table.Text: "TEXT",
			table.Categorical: "TEXT", table.Boolean: "BOOLEAN", table.Timestamp: "TIMESTAMPTZ",
		},
	},
	"mysql": {
		driver: "mysql",
		quote:  func(s string) string { return "`" + strings.ReplaceAll(s, "`", "``") + "`" },
		param:  func(int) string { return "?" },
		types: map[table.Type]string{
			table.Integer: "BIGINT", table.Float: "DOUBLE", table.Text: "TEXT",
			table.Categorical: "VARCHAR(255)", table.Boolean: "BOOLEAN", table.Timestamp: "DATETIME(6)",
		},
	},
}

var driverAliases = map[string]string{
	"sqlite": "sqlite", "sqlite3": "sqlite",
	"postgres": "postgres", "postgresql": "postgres", "pg": "postgres",
	"mysql": "mysql", "mariadb": "mysql",
}

func doubleQuote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func lookupDialect(driver string) (dialect, error) {
	name, ok := driverAliases[strings.ToLower(driver)]
	if !ok {
		return dialect{}, configError("driver", driver, "unsupported driver").
			WithHint("use sqlite, postgres or mysql")
	}
	return dialects[name], nil
}

func openDB(d dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(10 * time.Minute)
	return db, nil
}

type sqlReader struct {
	dialect dialect
	dsn     string
	query   string
	schema  table.Schema
}

func newSQLReader(opts Options) (Reader, error) {
	d, err := lookupDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, configError("dsn", "", "cannot be empty")
	}
	query := opts.Query
	if query == "" && opts.Table != "" {
		query = "SELECT * FROM " + d.quote(opts.Table)
	}
	if query == "" {
		return nil, configError("query", "", "cannot be empty").
			WithHint("set query or table")
	}
	return &sqlReader{dialect: d, dsn: opts.DSN, query: query, schema: opts.Schema}, nil
}

func (r *sqlReader) Read(ctx context.Context) (*table.Table, error) {
	db, err := openDB(r.dialect, r.dsn)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return ReadSQL(ctx, db, r.query, r.schema)
}

// ReadSQL runs query and collects the result set. Without a schema,
// column types come from the declared database types, falling back to the
// scanned values when the driver reports none.
func ReadSQL(ctx context.Context, db *sql.DB, query string, schema table.Schema) (*table.Table, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	values := make([][]any, len(colTypes))
	for rows.Next() {
		raw := make([]any, len(colTypes))
		ptrs := make([]any, len(colTypes))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range raw {
			values[i] = append(values[i], fromSQL(v))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if schema != nil {
		position := make(map[string]int, len(colTypes))
		for i, ct := range colTypes {
			position[ct.Name()] = i
		}
		cols := make([]*table.Column, len(schema))
		for i, f := range schema {
			idx, ok := position[f.Name]
			if !ok {
				return nil, fmt.Errorf("%w: %q not in result set", table.ErrColumnNotFound, f.Name)
			}
			c, err := valueColumn(f.Name, f.Type, values[idx])
			if err != nil {
				return nil, err
			}
			cols[i] = c
		}
		if len(cols) == 0 {
			return table.Empty(schema)
		}
		return table.New(cols...)
	}

	cols := make([]*table.Column, len(colTypes))
	for i, ct := range colTypes {
		c, err := valueColumn(ct.Name(), declaredType(ct.DatabaseTypeName()), values[i])
		if err != nil {
			return nil, err
		}
		cols[i] = c
	}
	return table.New(cols...)
}

// declaredType maps a database type name to a column type. Unknown names
// return Invalid so the type is inferred from values.
func declaredType(name string) table.Type {
	name = strings.ToUpper(name)
	switch {
	case name == "":
		return table.Invalid
	case strings.HasPrefix(name, "BOOL"), name == "TINYINT(1)":
		return table.Boolean
	case strings.Contains(name, "INT"), name == "SERIAL", name == "BIGSERIAL":
		return table.Integer
	case strings.Contains(name, "REAL"), strings.Contains(name, "FLOA"), strings.Contains(name, "DOUB"),
		strings.HasPrefix(name, "NUMERIC"), strings.HasPrefix(name, "DECIMAL"):
		return table.Float
	case strings.Contains(name, "TIME"), name == "DATE":
		return table.Timestamp
	case strings.Contains(name, "CHAR"), strings.Contains(name, "TEXT"), name == "CLOB", name == "UUID":
		return table.Text
	}
	return table.Invalid
}

// fromSQL turns a scanned driver value into int64, float64, string, bool,
// time.Time or nil.
func fromSQL(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.UTC()
	}
	return v
}

type sqlWriter struct {
	dialect dialect
	dsn     string
	table   string
	mode    Mode
}

func newSQLWriter(opts Options) (Writer, error) {
	d, err := lookupDialect(opts.Driver)
	if err != nil {
		return nil, err
	}
	if opts.DSN == "" {
		return nil, configError("dsn", "", "cannot be empty")
	}
	if opts.Table == "" {
		return nil, configError("table", "", "cannot be empty")
	}
	return &sqlWriter{dialect: d, dsn: opts.DSN, table: opts.Table, mode: opts.Mode}, nil
}

func (w *sqlWriter) Write(ctx context.Context, t *table.Table) error {
	db, err := openDB(w.dialect, w.dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	return WriteSQL(ctx, db, w.dialect.driver, w.table, t, w.mode)
}

// WriteSQL creates the target table if needed and inserts every row in one
// transaction. ModeReplace drops an existing table first.
func WriteSQL(ctx context.Context, db *sql.DB, driver, name string, t *table.Table, mode Mode) error {
	d, err := lookupDialect(driver)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if mode != ModeAppend {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+d.quote(name)); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, createTableSQL(d, name, t.Schema())); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	if t.NumRows() > 0 && t.NumColumns() > 0 {
		stmt, err := tx.PrepareContext(ctx, insertSQL(d, name, t.ColumnNames()))
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		cols := t.Columns()
		args := make([]any, len(cols))
		for i := 0; i < t.NumRows(); i++ {
			for j, c := range cols {
				args[j] = c.Value(i)
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
	}
	return tx.Commit()
}

func createTableSQL(d dialect, name string, schema table.Schema) string {
	defs := make([]string, len(schema))
	for i, f := range schema {
		defs[i] = d.quote(f.Name) + " " + d.types[f.Type]
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.quote(name), strings.Join(defs, ", "))
}

func insertSQL(d dialect, name string, cols []string) string {
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.quote(c)
		params[i] = d.param(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(name), strings.Join(quoted, ", "), strings.Join(params, ", "))
}
