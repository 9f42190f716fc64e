package composer

// Column pairs a column name with its human description for the prompt.
type Column struct {
	Name        string
	Description string
}

// TableSchema is the fixed description of the source table the language
// model is briefed with.
type TableSchema struct {
	TableName     string
	S3Path        string
	Columns       []Column
	SampleQueries []string
}

// DefaultSchema describes the conversation_entry table stored at the given
// parquet glob.
func DefaultSchema(s3Path string) TableSchema {
	return TableSchema{
		TableName: "conversation_entry",
		S3Path:    s3Path,
		Columns: []Column{
			{"entry_id", "VARCHAR - Unique identifier (session_id + interaction_id)"},
			{"session_id", "VARCHAR - Session identifier for grouping conversations"},
			{"interaction_id", "INTEGER - Sequential number within a session (1, 2, 3...)"},
			{"date", "DATE - Date of the conversation"},
			{"hour", "INTEGER - Hour of day (0-23)"},
			{"question", "VARCHAR - The question asked by the user"},
			{"question_created", "TIMESTAMPTZ - Timestamp when question was asked"},
			{"answer", "VARCHAR - The AI response to the question"},
			{"answer_created", "TIMESTAMPTZ - Timestamp when answer was provided"},
			{"action", "VARCHAR - Action type (general, orders, msa_agents, inventory, customer_service, safety)"},
			{"user_id", "VARCHAR - ID of the user who asked the question"},
			{"location_id", "INTEGER - Store location ID (1001-1499)"},
			{"region_id", "INTEGER - Regional grouping (100-149)"},
			{"group_id", "INTEGER - Group identifier (10-24)"},
			{"district_id", "INTEGER - District identifier (1-14)"},
			{"user_roles", "VARCHAR[] - Array of user roles (team_member, team_lead, etc.)"},
			{"sources", "STRUCT(name VARCHAR, score FLOAT)[] - RAG sources with relevance scores"},
		},
		SampleQueries: []string{
			"SELECT COUNT(*) FROM conversation_entry",
			"SELECT session_id, COUNT(*) as interactions FROM conversation_entry GROUP BY session_id",
			"SELECT date, COUNT(*) as daily_conversations FROM conversation_entry GROUP BY date ORDER BY date",
			"SELECT action, COUNT(*) as count FROM conversation_entry GROUP BY action ORDER BY count DESC",
		},
	}
}
