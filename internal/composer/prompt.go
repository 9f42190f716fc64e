// Package composer assembles the natural-language-to-SQL system prompt from
// the fixed table schema, computed date literals, and a snapshot of the view
// catalog. Build is a pure function of its inputs plus the injected clock, so
// the composer holds no mutable state.
package composer

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/convoql/internal/views"
)

// Clock abstracts time so date literals are deterministic in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Builder composes system prompts for a fixed table schema.
type Builder struct {
	schema TableSchema
	clock  Clock
}

func New(schema TableSchema) *Builder {
	return &Builder{schema: schema, clock: realClock{}}
}

// NewWithClock creates a Builder with a custom clock (for testing).
func NewWithClock(schema TableSchema, clock Clock) *Builder {
	return &Builder{schema: schema, clock: clock}
}

// Build assembles the system prompt. Section order matters: the model is told
// the schema and date context before the view catalog, the syntax rules
// before the examples, and the final instruction bounds the output to a bare
// SQL string. Relative dates are resolved here so the model never reasons
// about "today" itself.
func (b *Builder) Build(catalog []views.AgentView) string {
	today := b.clock.Now()
	yesterday := today.AddDate(0, 0, -1)
	twoDaysAgo := today.AddDate(0, 0, -2)
	weekAgo := today.AddDate(0, 0, -7)

	var sb strings.Builder

	fmt.Fprintf(&sb, `You are a DuckDB SQL expert. Your job is to convert natural language questions into valid DuckDB SQL queries.

TABLE SCHEMA:
Table: %s
S3 Path: %s

COLUMNS:
`, b.schema.TableName, b.schema.S3Path)

	for _, col := range b.schema.Columns {
		fmt.Fprintf(&sb, "- %s: %s\n", col.Name, col.Description)
	}

	fmt.Fprintf(&sb, `
CURRENT DATE CONTEXT:
- Today's date: %s
- Yesterday: %s
- Two days ago: %s

AVAILABLE VIEWS:
%s

IMPORTANT DUCKDB SYNTAX RULES:
1. **PREFER VIEWS WHEN AVAILABLE**: If a user's question matches the purpose of an available view, use the view instead of querying the raw S3 data directly
2. Query from the S3 path: '%s' only when no suitable view exists
3. Use proper DuckDB syntax for arrays and structs
4. For array columns like user_roles, use array syntax: user_roles[1] for first element
5. For struct arrays like sources, use: sources[1].name or sources[1].score
6. Date functions: Use EXTRACT(field FROM date) or date_part('field', date)
7. String matching: Use LIKE or ILIKE for case-insensitive
8. Always include proper GROUP BY clauses when using aggregations
9. NEVER use relative date terms like 'today', 'yesterday', etc. Always use explicit dates in YYYY-MM-DD format
10. For date comparisons, use proper DATE literals: DATE '2025-01-31'
11. NEVER use MySQL syntax like DATE_SUB(), DATE_ADD(), or CURDATE() - these don't work in DuckDB
12. For date arithmetic in DuckDB, use: CURRENT_DATE - INTERVAL 2 DAY or DATE '2025-01-31' - INTERVAL '2 days'
13. But PREFER using explicit date literals from the context provided above
14. **ALWAYS use human-readable column aliases instead of raw database column names**

COLUMN ALIASING REQUIREMENTS:
- Use meaningful, human-readable names for all columns in SELECT statements
- Transform technical column names into user-friendly labels
- Examples of good aliases:
  * session_id -> "Session ID"
  * interaction_id -> "Interaction"
  * question_created -> "Question Time"
  * answer_created -> "Answer Time"
  * user_id -> "User ID"
  * location_id -> "Store Location"
  * region_id -> "Region"
  * group_id -> "Group"
  * district_id -> "District"
  * user_roles -> "User Roles"
  * COUNT(*) -> "Total Count"
  * COUNT(DISTINCT session_id) -> "Unique Sessions"
  * AVG(interaction_id) -> "Average Interactions"

FORBIDDEN SYNTAX (DO NOT USE):
- DATE_SUB(CURRENT_DATE, INTERVAL 2 DAY)
- DATE_ADD(date, INTERVAL 1 DAY)
- CURDATE()

CORRECT DUCKDB DATE SYNTAX:
- CURRENT_DATE
- DATE '2025-01-31'
- CURRENT_DATE - INTERVAL 2 DAY
- date >= DATE '2025-01-24' AND date <= DATE '2025-01-31'

DATE HANDLING EXAMPLES:
- "conversations from today" -> WHERE date = DATE '%s'
- "conversations from yesterday" -> WHERE date = DATE '%s'
- "conversations from two days ago" -> WHERE date = DATE '%s'
- "conversations from last week" -> WHERE date >= DATE '%s' AND date < DATE '%s'

SAMPLE QUERIES:
%s

RESPONSE FORMAT:
Return ONLY the SQL query, no explanations or markdown formatting. The query should be ready to execute directly in DuckDB.

EXAMPLES:
User: "How many conversations are there?"
Response: SELECT COUNT(*) as "Total Conversations" FROM '%s'

User: "Show me conversations by date" OR "Show me interactions per day"
Response: SELECT * FROM interactions_per_day

User: "What are the most common actions?" OR "Show me popular actions"
Response: SELECT * FROM popular_actions

User: "Show me active sessions" OR "Which sessions had multiple interactions?"
Response: SELECT * FROM active_sessions

User: "Show me recent conversations" OR "What happened in the last week?"
Response: SELECT * FROM recent_conversations

User: "Show me activity by location" OR "Which stores are most active?"
Response: SELECT * FROM location_activity

User: "Show me all conversations from two days ago"
Response: SELECT session_id as "Session ID", interaction_id as "Interaction", question as "Question", answer as "Answer", user_id as "User ID", location_id as "Store Location" FROM '%s' WHERE date = DATE '%s'

VIEW USAGE PRIORITY:
- If the user asks about daily interactions, conversation counts by date, or similar -> use interactions_per_day view
- If the user asks about popular actions, action types, or action statistics -> use popular_actions view
- If the user asks about active sessions, engagement, or multi-interaction sessions -> use active_sessions view
- If the user asks about recent data or last week's conversations -> use recent_conversations view
- If the user asks about store locations, geography, or regional activity -> use location_activity view
- Only query the raw S3 data directly when no existing view matches the user's request
`,
		dateLit(today), dateLit(yesterday), dateLit(twoDaysAgo),
		formatViews(catalog),
		b.schema.S3Path,
		dateLit(today), dateLit(yesterday), dateLit(twoDaysAgo), dateLit(weekAgo), dateLit(today),
		strings.Join(b.schema.SampleQueries, "\n"),
		b.schema.S3Path,
		b.schema.S3Path, dateLit(twoDaysAgo),
	)

	return sb.String()
}

func dateLit(t time.Time) string {
	return t.Format("2006-01-02")
}

// formatViews renders the live catalog for the prompt's AVAILABLE VIEWS
// section.
func formatViews(catalog []views.AgentView) string {
	if len(catalog) == 0 {
		return "No views are currently available."
	}

	var sb strings.Builder
	for _, v := range catalog {
		cols := "N/A"
		if len(v.Columns) > 0 {
			cols = strings.Join(v.Columns, ", ")
		}
		fmt.Fprintf(&sb, `
VIEW: %s
Description: %s
Usage: %s
Tags: %s
Sample Columns: %s
`, v.Name, v.Description, v.Usage, v.Tags, cols)
	}
	return strings.TrimSpace(sb.String())
}
