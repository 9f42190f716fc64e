package views

import (
	"context"
	"fmt"
	"log/slog"
)

type defaultView struct {
	name        string
	description string
	sqlQuery    string
	tags        []string
}

// defaultCatalog returns the canonical analytic views, each defined against
// the source parquet glob.
func defaultCatalog(tablePath string) []defaultView {
	return []defaultView{
		{
			name:        "interactions_per_day",
			description: "Daily count of conversation interactions",
			sqlQuery: fmt.Sprintf(`SELECT
    date AS "Date",
    COUNT(*) AS "Total Interactions",
    COUNT(DISTINCT session_id) AS "Unique Sessions",
    AVG(interaction_id) AS "Avg Interactions per Session"
FROM '%s'
GROUP BY date
ORDER BY date DESC`, tablePath),
			tags: []string{"daily", "analytics", "summary"},
		},
		{
			name:        "popular_actions",
			description: "Most common action types in conversations",
			sqlQuery: fmt.Sprintf(`SELECT
    action AS "Action Type",
    COUNT(*) AS "Count",
    ROUND(COUNT(*) * 100.0 / SUM(COUNT(*)) OVER (), 2) AS "Percentage"
FROM '%s'
WHERE action IS NOT NULL
GROUP BY action
ORDER BY COUNT(*) DESC`, tablePath),
			tags: []string{"actions", "popular", "percentage"},
		},
		{
			name:        "active_sessions",
			description: "Sessions with multiple interactions (more engaging conversations)",
			sqlQuery: fmt.Sprintf(`SELECT
    session_id AS "Session ID",
    COUNT(*) AS "Total Interactions",
    MIN(question_created) AS "First Question",
    MAX(answer_created) AS "Last Answer",
    EXTRACT(EPOCH FROM (MAX(answer_created) - MIN(question_created))) / 60 AS "Duration (minutes)"
FROM '%s'
GROUP BY session_id
HAVING COUNT(*) > 1
ORDER BY COUNT(*) DESC`, tablePath),
			tags: []string{"sessions", "engagement", "duration"},
		},
		{
			name:        "recent_conversations",
			description: "Conversations from the last 7 days",
			sqlQuery: fmt.Sprintf(`SELECT
    date AS "Date",
    session_id AS "Session ID",
    interaction_id AS "Interaction",
    LEFT(question, 50) || '...' AS "Question Preview",
    action AS "Action Type",
    user_id AS "User ID",
    location_id AS "Store Location"
FROM '%s'
WHERE date >= CURRENT_DATE - INTERVAL 7 DAY
ORDER BY question_created DESC`, tablePath),
			tags: []string{"recent", "preview", "last-week"},
		},
		{
			name:        "location_activity",
			description: "Conversation activity by store location",
			sqlQuery: fmt.Sprintf(`SELECT
    location_id AS "Store Location",
    region_id AS "Region",
    group_id AS "Group",
    district_id AS "District",
    COUNT(*) AS "Total Conversations",
    COUNT(DISTINCT session_id) AS "Unique Sessions",
    COUNT(DISTINCT user_id) AS "Unique Users"
FROM '%s'
WHERE location_id IS NOT NULL
GROUP BY location_id, region_id, group_id, district_id
ORDER BY COUNT(*) DESC`, tablePath),
			tags: []string{"location", "geography", "stores"},
		},
	}
}

// CreateDefaults creates the canonical analytic views. Every entry is created
// with replace, so re-running is safe and always converges on the same five
// views. Individual failures are logged and collected; the remaining views
// are still attempted.
func (s *Store) CreateDefaults(ctx context.Context) error {
	var firstErr error
	for _, dv := range defaultCatalog(s.tablePath) {
		if _, err := s.Create(ctx, dv.name, dv.description, dv.sqlQuery, dv.tags, true); err != nil {
			slog.Error("failed to create default view", "name", dv.name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("creating default view %q: %w", dv.name, err)
			}
		}
	}
	return firstErr
}

// DefaultViewNames lists the names of the canonical catalog in creation order.
func DefaultViewNames() []string {
	names := make([]string, 0, 5)
	for _, dv := range defaultCatalog("") {
		names = append(names, dv.name)
	}
	return names
}
