// Package engine wraps the embedded DuckDB engine behind scoped connections
// preconfigured to read parquet files from an S3-compatible object store.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
)

// Settings carries everything a fresh connection needs to address the lake.
type Settings struct {
	DSN       string // DuckDB connection string; empty means in-memory
	Endpoint  string // object store host:port, no scheme
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Adapter opens configured DuckDB connections. It holds no state between
// calls: views materialized in one connection are invisible in another, so
// every logical operation acquires its own connection and closes it on every
// exit path. There is no pooling by design.
type Adapter struct {
	settings Settings
	driver   string
}

func NewAdapter(settings Settings) *Adapter {
	return &Adapter{settings: settings, driver: "duckdb"}
}

// Session is one scoped engine connection: acquire, use, close.
type Session interface {
	Exec(ctx context.Context, query string) error
	Query(ctx context.Context, query string) (Result, error)
	Columns(ctx context.Context, query string) ([]string, error)
	Close() error
}

// Open returns a fresh connection with httpfs loaded and the S3 settings
// applied. Failures to reach the engine or apply settings surface as a
// ConnectionError; the adapter never retries.
func (a *Adapter) Open(ctx context.Context) (*Conn, error) {
	dsn := a.settings.DSN
	if dsn == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open(a.driver, dsn)
	if err != nil {
		return nil, &ConnectionError{Err: fmt.Errorf("opening duckdb: %w", err)}
	}
	// The SET s3_* statements below are session-scoped; a pool of more than
	// one physical connection would leave some of them unconfigured.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, &ConnectionError{Err: fmt.Errorf("pinging duckdb: %w", err)}
	}

	for _, stmt := range a.setupStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, &ConnectionError{Err: fmt.Errorf("applying connection settings: %w", err)}
		}
	}

	return &Conn{db: db}, nil
}

// setupStatements returns the statements run against every new connection:
// the httpfs extension plus the object store credentials and addressing style.
func (a *Adapter) setupStatements() []string {
	return []string{
		"INSTALL httpfs;",
		"LOAD httpfs;",
		fmt.Sprintf("SET s3_endpoint = '%s';", sqlQuote(a.settings.Endpoint)),
		fmt.Sprintf("SET s3_access_key_id = '%s';", sqlQuote(a.settings.AccessKey)),
		fmt.Sprintf("SET s3_secret_access_key = '%s';", sqlQuote(a.settings.SecretKey)),
		fmt.Sprintf("SET s3_use_ssl = %t;", a.settings.UseSSL),
		"SET s3_url_style = 'path';",
	}
}

func sqlQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Conn is a single scoped DuckDB connection. Each Conn is backed by its own
// database handle, so views created here never leak into other connections.
type Conn struct {
	db *sql.DB
}

func (c *Conn) Exec(ctx context.Context, query string) error {
	_, err := c.db.ExecContext(ctx, query)
	return err
}

// Query runs the statement and collects all rows into a Result.
func (c *Conn) Query(ctx context.Context, query string) (Result, error) {
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return Result{}, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// Columns returns the column names the statement would produce, without
// reading any data rows.
func (c *Conn) Columns(ctx context.Context, query string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM (%s) LIMIT 0", query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return rows.Columns()
}

func (c *Conn) Close() error {
	return c.db.Close()
}

// ConnectionError wraps failures to open or configure an engine connection.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("engine connection: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ExecutionError wraps an engine-level failure to execute a statement,
// carrying the statement for the caller's error reporting.
type ExecutionError struct {
	SQL string
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("executing %q: %v", e.SQL, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
