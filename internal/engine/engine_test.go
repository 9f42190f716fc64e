package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
	"testing"
)

// stubDriver is a minimal database/sql driver recording every statement, so
// Open's connection setup can be exercised without a real engine.
type stubDriver struct {
	stmts *[]string
}

func (d stubDriver) Open(name string) (driver.Conn, error) {
	return &stubDriverConn{stmts: d.stmts}, nil
}

type stubDriverConn struct {
	stmts *[]string
}

func (c *stubDriverConn) Prepare(query string) (driver.Stmt, error) {
	*c.stmts = append(*c.stmts, query)
	return &stubDriverStmt{}, nil
}

func (c *stubDriverConn) Close() error { return nil }

func (c *stubDriverConn) Begin() (driver.Tx, error) { return nil, driver.ErrSkip }

type stubDriverStmt struct{}

func (s *stubDriverStmt) Close() error  { return nil }
func (s *stubDriverStmt) NumInput() int { return 0 }

func (s *stubDriverStmt) Exec(args []driver.Value) (driver.Result, error) {
	return driver.ResultNoRows, nil
}

func (s *stubDriverStmt) Query(args []driver.Value) (driver.Rows, error) {
	return &stubDriverRows{}, nil
}

type stubDriverRows struct{}

func (r *stubDriverRows) Columns() []string              { return nil }
func (r *stubDriverRows) Close() error                   { return nil }
func (r *stubDriverRows) Next(dest []driver.Value) error { return io.EOF }

var stubStmts []string

func init() {
	sql.Register("enginestub", stubDriver{stmts: &stubStmts})
}

func TestOpen_SingleConnection(t *testing.T) {
	stubStmts = nil
	a := &Adapter{
		settings: Settings{Endpoint: "localhost:9000", AccessKey: "ak", SecretKey: "sk"},
		driver:   "enginestub",
	}

	conn, err := a.Open(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer conn.Close()

	// Session-scoped SET statements require exactly one physical connection.
	if got := conn.db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("expected pool pinned to 1 connection, got %d", got)
	}

	joined := strings.Join(stubStmts, "\n")
	for _, want := range a.setupStatements() {
		if !strings.Contains(joined, want) {
			t.Errorf("setup statement %q never reached the connection:\n%s", want, joined)
		}
	}
}

func TestSetupStatements(t *testing.T) {
	a := NewAdapter(Settings{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin123",
		UseSSL:    false,
	})

	stmts := a.setupStatements()

	joined := strings.Join(stmts, "\n")
	for _, want := range []string{
		"INSTALL httpfs;",
		"LOAD httpfs;",
		"SET s3_endpoint = 'localhost:9000';",
		"SET s3_access_key_id = 'minioadmin';",
		"SET s3_secret_access_key = 'minioadmin123';",
		"SET s3_use_ssl = false;",
		"SET s3_url_style = 'path';",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing statement %q in:\n%s", want, joined)
		}
	}

	// Extension load must precede the s3 settings.
	loadIdx, setIdx := -1, -1
	for i, s := range stmts {
		if s == "LOAD httpfs;" {
			loadIdx = i
		}
		if strings.HasPrefix(s, "SET s3_endpoint") && setIdx == -1 {
			setIdx = i
		}
	}
	if loadIdx == -1 || setIdx == -1 || loadIdx > setIdx {
		t.Errorf("httpfs must be loaded before s3 settings: %v", stmts)
	}
}

func TestSetupStatements_SSL(t *testing.T) {
	a := NewAdapter(Settings{Endpoint: "minio.internal:9000", UseSSL: true})
	joined := strings.Join(a.setupStatements(), "\n")
	if !strings.Contains(joined, "SET s3_use_ssl = true;") {
		t.Errorf("expected ssl enabled in:\n%s", joined)
	}
}

func TestSQLQuote(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"o'brien", "o''brien"},
		{"''", "''''"},
		{"", ""},
	}
	for _, c := range cases {
		if got := sqlQuote(c.in); got != c.want {
			t.Errorf("sqlQuote(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestMaterializeSQL(t *testing.T) {
	got := MaterializeSQL("daily", "SELECT 1 AS n")
	want := "CREATE OR REPLACE VIEW daily AS SELECT 1 AS n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
