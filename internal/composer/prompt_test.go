package composer

import (
	"strings"
	"testing"
	"time"

	"github.com/kalambet/convoql/internal/views"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

const testPath = "s3://convo/tables/conversation_entry/**/*.parquet"

func newTestBuilder() *Builder {
	return NewWithClock(
		DefaultSchema(testPath),
		fixedClock{t: time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
	)
}

func TestBuild_DateContext(t *testing.T) {
	prompt := newTestBuilder().Build(nil)

	for _, want := range []string{
		"Today's date: 2025-06-15",
		"Yesterday: 2025-06-14",
		"Two days ago: 2025-06-13",
		`"conversations from last week" -> WHERE date >= DATE '2025-06-08' AND date < DATE '2025-06-15'`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuild_SectionOrder(t *testing.T) {
	prompt := newTestBuilder().Build(nil)

	sections := []string{
		"TABLE SCHEMA:",
		"COLUMNS:",
		"CURRENT DATE CONTEXT:",
		"AVAILABLE VIEWS:",
		"IMPORTANT DUCKDB SYNTAX RULES:",
		"SAMPLE QUERIES:",
		"RESPONSE FORMAT:",
		"EXAMPLES:",
	}

	last := -1
	for _, s := range sections {
		idx := strings.Index(prompt, s)
		if idx == -1 {
			t.Fatalf("prompt missing section %q", s)
		}
		if idx < last {
			t.Errorf("section %q out of order", s)
		}
		last = idx
	}
}

func TestBuild_SchemaAndPath(t *testing.T) {
	prompt := newTestBuilder().Build(nil)

	if !strings.Contains(prompt, "Table: conversation_entry") {
		t.Error("prompt missing table name")
	}
	if !strings.Contains(prompt, testPath) {
		t.Error("prompt missing S3 path")
	}
	for _, col := range []string{"session_id", "interaction_id", "question", "answer", "user_roles", "sources"} {
		if !strings.Contains(prompt, "- "+col+":") {
			t.Errorf("prompt missing column %q", col)
		}
	}
	if !strings.Contains(prompt, "Return ONLY the SQL query") {
		t.Error("prompt missing output format instruction")
	}
}

func TestBuild_ViewsReflectCatalog(t *testing.T) {
	b := newTestBuilder()

	catalog := []views.AgentView{
		{
			Name:        "interactions_per_day",
			Description: "Daily count of conversation interactions",
			Usage:       "SELECT * FROM interactions_per_day",
			Tags:        "daily, analytics",
			Columns:     []string{"Date", "Total Interactions"},
		},
	}

	withView := b.Build(catalog)
	if !strings.Contains(withView, "VIEW: interactions_per_day") {
		t.Error("prompt missing the registered view")
	}
	if !strings.Contains(withView, "Sample Columns: Date, Total Interactions") {
		t.Error("prompt missing view columns")
	}

	// The same builder with an empty catalog must not mention it.
	without := b.Build(nil)
	if strings.Contains(without, "VIEW: interactions_per_day") {
		t.Error("prompt mentions an unregistered view")
	}
	if !strings.Contains(without, "No views are currently available.") {
		t.Error("prompt missing the empty-catalog placeholder")
	}
}

func TestBuild_ViewWithoutColumns(t *testing.T) {
	prompt := newTestBuilder().Build([]views.AgentView{
		{Name: "daily", Description: "d", Usage: "SELECT * FROM daily"},
	})
	if !strings.Contains(prompt, "Sample Columns: N/A") {
		t.Error("missing N/A placeholder for unknown columns")
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder()
	if b.Build(nil) != b.Build(nil) {
		t.Error("two builds with the same inputs must be identical")
	}
}
