package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kalambet/convoql/internal/composer"
	"github.com/kalambet/convoql/internal/engine"
	"github.com/kalambet/convoql/internal/views"
)

type stubProvider struct {
	completion string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (p *stubProvider) Complete(ctx context.Context, system, user string) (string, error) {
	p.calls++
	p.lastSystem = system
	p.lastUser = user
	if p.err != nil {
		return "", p.err
	}
	return p.completion, nil
}

func (p *stubProvider) Name() string { return "stub" }

type stubCatalog struct {
	views []views.AgentView
}

func (c *stubCatalog) AgentViews(ctx context.Context) []views.AgentView { return c.views }

type stubRunner struct {
	executed []string
	result   engine.Result
	err      error
}

func (r *stubRunner) Execute(ctx context.Context, sqlText string) (engine.Result, error) {
	r.executed = append(r.executed, sqlText)
	if r.err != nil {
		return engine.Result{}, r.err
	}
	return r.result, nil
}

func newTestAgent(p *stubProvider, r *stubRunner, catalog ...views.AgentView) *Agent {
	builder := composer.New(composer.DefaultSchema("s3://convo/tables/conversation_entry/**/*.parquet"))
	return New(p, builder, &stubCatalog{views: catalog}, r)
}

func TestSanitizeSQL(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"bare", "SELECT 1", "SELECT 1"},
		{"tagged fence", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"uppercase tag", "```SQL\nSELECT 1\n```", "SELECT 1"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"surrounding whitespace", "  \nSELECT 1\n  ", "SELECT 1"},
		{"multiline", "```sql\nSELECT a,\n  b\nFROM t\n```", "SELECT a,\n  b\nFROM t"},
		{"empty", "", ""},
		{"only fences", "```sql\n```", ""},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := SanitizeSQL(c.in); got != c.want {
				t.Errorf("SanitizeSQL(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestGenerateSQL(t *testing.T) {
	p := &stubProvider{completion: "```sql\nSELECT COUNT(*) FROM daily\n```"}
	a := newTestAgent(p, &stubRunner{})

	sqlText, err := a.GenerateSQL(context.Background(), "how many?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sqlText != "SELECT COUNT(*) FROM daily" {
		t.Errorf("unexpected SQL: %q", sqlText)
	}
	if p.lastUser != "how many?" {
		t.Errorf("question not passed through: %q", p.lastUser)
	}
	if !strings.Contains(p.lastSystem, "DuckDB SQL expert") {
		t.Error("system prompt not composed")
	}
}

func TestGenerateSQL_CatalogInPrompt(t *testing.T) {
	p := &stubProvider{completion: "SELECT 1"}
	a := newTestAgent(p, &stubRunner{}, views.AgentView{
		Name:        "daily",
		Description: "per-day counts",
		Usage:       "SELECT * FROM daily",
	})

	if _, err := a.GenerateSQL(context.Background(), "q"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.lastSystem, "VIEW: daily") {
		t.Error("registered view missing from the prompt")
	}
}

func TestGenerateSQL_ProviderError(t *testing.T) {
	p := &stubProvider{err: fmt.Errorf("rate limited")}
	a := newTestAgent(p, &stubRunner{})

	_, err := a.GenerateSQL(context.Background(), "q")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if genErr.Question != "q" {
		t.Errorf("error must carry the question, got %q", genErr.Question)
	}
}

func TestGenerateSQL_EmptyCompletion(t *testing.T) {
	p := &stubProvider{completion: "```sql\n```"}
	a := newTestAgent(p, &stubRunner{})

	_, err := a.GenerateSQL(context.Background(), "q")
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError for empty SQL, got %v", err)
	}
}

func TestAsk(t *testing.T) {
	p := &stubProvider{completion: "```sql\nSELECT 1 AS n\n```"}
	r := &stubRunner{result: engine.Result{Columns: []string{"n"}, Rows: []map[string]any{{"n": int64(1)}}}}
	a := newTestAgent(p, r)

	answer, err := a.Ask(context.Background(), "how many?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.calls != 1 {
		t.Errorf("generation must happen exactly once, got %d calls", p.calls)
	}
	if len(r.executed) != 1 || r.executed[0] != "SELECT 1 AS n" {
		t.Errorf("executor ran %v, want the sanitized SQL", r.executed)
	}
	if answer.SQL != r.executed[0] {
		t.Errorf("Answer.SQL %q must equal the executed statement %q", answer.SQL, r.executed[0])
	}
	if answer.Question != "how many?" || answer.Result.RowCount() != 1 {
		t.Errorf("unexpected answer: %+v", answer)
	}
}

func TestAsk_ExecutionErrorPropagates(t *testing.T) {
	p := &stubProvider{completion: "SELECT 1"}
	r := &stubRunner{err: &engine.ExecutionError{SQL: "SELECT 1", Err: fmt.Errorf("boom")}}
	a := newTestAgent(p, r)

	_, err := a.Ask(context.Background(), "q")
	var execErr *engine.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
}
