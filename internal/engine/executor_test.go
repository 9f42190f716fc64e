package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

type stubSession struct {
	execs   []string
	queries []string
	execErr func(stmt string) error
	result  Result
	qErr    error
	closed  bool
}

func (s *stubSession) Exec(ctx context.Context, query string) error {
	s.execs = append(s.execs, query)
	if s.execErr != nil {
		return s.execErr(query)
	}
	return nil
}

func (s *stubSession) Query(ctx context.Context, query string) (Result, error) {
	s.queries = append(s.queries, query)
	if s.qErr != nil {
		return Result{}, s.qErr
	}
	return s.result, nil
}

func (s *stubSession) Columns(ctx context.Context, query string) ([]string, error) {
	return nil, nil
}

func (s *stubSession) Close() error {
	s.closed = true
	return nil
}

func newStubExecutor(sess *stubSession, refs []ViewRef) *Executor {
	return &Executor{
		open: func(ctx context.Context) (Session, error) {
			return sess, nil
		},
		source: func() []ViewRef { return refs },
	}
}

func TestExecute_MaterializesAllViews(t *testing.T) {
	sess := &stubSession{result: Result{Columns: []string{"n"}, Rows: []map[string]any{{"n": int64(1)}}}}
	exec := newStubExecutor(sess, []ViewRef{
		{Name: "daily", Query: "SELECT 1"},
		{Name: "popular", Query: "SELECT 2"},
	})

	res, err := exec.Execute(context.Background(), "SELECT * FROM daily")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.RowCount() != 1 {
		t.Errorf("expected 1 row, got %d", res.RowCount())
	}

	want := []string{
		"CREATE OR REPLACE VIEW daily AS SELECT 1",
		"CREATE OR REPLACE VIEW popular AS SELECT 2",
	}
	if len(sess.execs) != len(want) {
		t.Fatalf("expected %d materializations, got %v", len(want), sess.execs)
	}
	for i, w := range want {
		if sess.execs[i] != w {
			t.Errorf("statement %d: got %q, want %q", i, sess.execs[i], w)
		}
	}
	if len(sess.queries) != 1 || sess.queries[0] != "SELECT * FROM daily" {
		t.Errorf("unexpected queries: %v", sess.queries)
	}
	if !sess.closed {
		t.Error("connection must be closed after execution")
	}
}

func TestExecute_SkipsBrokenView(t *testing.T) {
	sess := &stubSession{
		execErr: func(stmt string) error {
			if strings.Contains(stmt, "VIEW broken") {
				return fmt.Errorf("Binder Error")
			}
			return nil
		},
	}
	exec := newStubExecutor(sess, []ViewRef{
		{Name: "broken", Query: "SELECT nope"},
		{Name: "healthy", Query: "SELECT 1"},
	})

	if _, err := exec.Execute(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("a broken view must not fail the query: %v", err)
	}

	// Both materializations were attempted; the query still ran.
	if len(sess.execs) != 2 {
		t.Errorf("expected both views attempted, got %v", sess.execs)
	}
	if len(sess.queries) != 1 {
		t.Errorf("query did not run: %v", sess.queries)
	}
}

func TestExecute_QueryFailure(t *testing.T) {
	sess := &stubSession{qErr: fmt.Errorf("Parser Error: syntax error")}
	exec := newStubExecutor(sess, nil)

	_, err := exec.Execute(context.Background(), "SELEKT 1")
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %T: %v", err, err)
	}
	if execErr.SQL != "SELEKT 1" {
		t.Errorf("error must carry the failing SQL, got %q", execErr.SQL)
	}
	if !sess.closed {
		t.Error("connection must be closed on the failure path too")
	}
}

func TestExecute_OpenFailure(t *testing.T) {
	wantErr := &ConnectionError{Err: fmt.Errorf("engine offline")}
	exec := &Executor{
		open: func(ctx context.Context) (Session, error) {
			return nil, wantErr
		},
		source: func() []ViewRef { return nil },
	}

	_, err := exec.Execute(context.Background(), "SELECT 1")
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %v", err)
	}
}
