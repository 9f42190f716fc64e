package engine

import (
	"context"
	"fmt"
	"log/slog"
)

// ViewRef is a name/query pair to materialize into a connection.
type ViewRef struct {
	Name  string
	Query string
}

// Source supplies the views to re-materialize before every execution. It is
// called per Execute so the executor always sees the store's current state.
type Source func() []ViewRef

// Executor runs SQL against fresh engine connections with all known views
// re-created first. Re-creating every view on every call is a deliberate
// consistency tradeoff: view visibility is connection-local, and a fresh
// connection knows nothing until told.
type Executor struct {
	open   func(ctx context.Context) (Session, error)
	source Source
}

func NewExecutor(adapter *Adapter, source Source) *Executor {
	return &Executor{
		open: func(ctx context.Context) (Session, error) {
			return adapter.Open(ctx)
		},
		source: source,
	}
}

// Execute materializes every known view into a fresh connection, runs sqlText
// verbatim, and returns the collected rows. A single broken view is logged
// and skipped so it cannot block unrelated SQL. The connection is closed on
// every path.
func (e *Executor) Execute(ctx context.Context, sqlText string) (Result, error) {
	conn, err := e.open(ctx)
	if err != nil {
		return Result{}, err
	}
	defer conn.Close()

	for _, v := range e.source() {
		stmt := MaterializeSQL(v.Name, v.Query)
		if err := conn.Exec(ctx, stmt); err != nil {
			slog.Warn("skipping broken view", "view", v.Name, "error", err)
			continue
		}
		slog.Debug("materialized view", "view", v.Name)
	}

	res, err := conn.Query(ctx, sqlText)
	if err != nil {
		return Result{}, &ExecutionError{SQL: sqlText, Err: err}
	}

	slog.Info("query executed", "rows", res.RowCount())
	return res, nil
}

// MaterializeSQL builds the statement that makes a stored view visible in a
// connection.
func MaterializeSQL(name, query string) string {
	return fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", name, query)
}
