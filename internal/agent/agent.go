// Package agent converts natural language questions into DuckDB SQL through
// an injected language-model provider and runs the result through the query
// executor.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/kalambet/convoql/internal/composer"
	"github.com/kalambet/convoql/internal/engine"
	"github.com/kalambet/convoql/internal/llm"
	"github.com/kalambet/convoql/internal/views"
)

// Catalog supplies the live view snapshot for prompt building.
// Implemented by *views.Store.
type Catalog interface {
	AgentViews(ctx context.Context) []views.AgentView
}

// Runner executes SQL with views re-materialized first.
// Implemented by *engine.Executor.
type Runner interface {
	Execute(ctx context.Context, sqlText string) (engine.Result, error)
}

// GenerationError reports a failed or empty completion from the language
// model. It is surfaced to the caller, never retried here.
type GenerationError struct {
	Question string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generating SQL for %q: %v", e.Question, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Answer is the result of one end-to-end ask: the SQL that was executed and
// the rows it produced. SQL is the exact statement the executor ran, so
// debug display never diverges from execution.
type Answer struct {
	Question string
	SQL      string
	Result   engine.Result
}

// Agent wires the prompt composer, the language-model provider, and the
// query executor into the ask pipeline.
type Agent struct {
	provider llm.Provider
	builder  *composer.Builder
	catalog  Catalog
	runner   Runner
}

func New(provider llm.Provider, builder *composer.Builder, catalog Catalog, runner Runner) *Agent {
	return &Agent{
		provider: provider,
		builder:  builder,
		catalog:  catalog,
		runner:   runner,
	}
}

// GenerateSQL builds the system prompt from the current view catalog, asks
// the provider, and normalizes the completion into a bare SQL statement.
func (a *Agent) GenerateSQL(ctx context.Context, question string) (string, error) {
	prompt := a.builder.Build(a.catalog.AgentViews(ctx))

	raw, err := a.provider.Complete(ctx, prompt, question)
	if err != nil {
		return "", &GenerationError{Question: question, Err: err}
	}

	sqlText := SanitizeSQL(raw)
	if sqlText == "" {
		return "", &GenerationError{Question: question, Err: fmt.Errorf("%s returned empty SQL", a.provider.Name())}
	}

	slog.Info("generated SQL", "provider", a.provider.Name(), "sql", sqlText)
	return sqlText, nil
}

// Ask generates SQL for the question and executes it. Generation happens
// exactly once; the executed statement is returned in the Answer.
func (a *Agent) Ask(ctx context.Context, question string) (Answer, error) {
	sqlText, err := a.GenerateSQL(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	res, err := a.runner.Execute(ctx, sqlText)
	if err != nil {
		return Answer{}, err
	}

	return Answer{Question: question, SQL: sqlText, Result: res}, nil
}

var (
	fenceTagged = regexp.MustCompile("(?i)```sql\\s*")
	fenceBare   = regexp.MustCompile("```\\s*")
)

// SanitizeSQL strips Markdown code-fence markers (language-tagged and bare)
// and surrounding whitespace. The executor treats the result as literal SQL,
// so no fenced or annotated text may survive.
func SanitizeSQL(raw string) string {
	s := fenceTagged.ReplaceAllString(raw, "")
	s = fenceBare.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
