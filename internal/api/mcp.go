package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server exposing the analytics tools. The same
// Deps drive both surfaces, so REST and MCP answers never disagree.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"convoql",
		serviceVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("convoql — natural-language analytics over conversation history stored as parquet."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_question",
			mcp.WithDescription("Answer an analytics question about conversation history. Generates SQL from the question and runs it against the data lake."),
			mcp.WithString("question", mcp.Description("Natural language question"), mcp.Required()),
		),
		mcpAskQuestion(deps),
	)

	s.AddTool(
		mcp.NewTool("run_sql",
			mcp.WithDescription("Run a DuckDB SQL query against the conversation data. Registered views are available by name."),
			mcp.WithString("sql", mcp.Description("SQL query to execute"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum rows to return (default 100)")),
		),
		mcpRunSQL(deps),
	)

	s.AddTool(
		mcp.NewTool("list_views",
			mcp.WithDescription("List the registered analytical views with descriptions and tags."),
		),
		mcpListViews(deps),
	)

	s.AddTool(
		mcp.NewTool("get_view",
			mcp.WithDescription("Get the full definition of a registered view, including its SQL."),
			mcp.WithString("name", mcp.Description("View name"), mcp.Required()),
		),
		mcpGetView(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"views://catalog",
			"View Catalog",
			mcp.WithResourceDescription("All registered view definitions as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceCatalog(deps),
	)

	return s
}

func mcpAskQuestion(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Agent == nil {
			return mcpError("SQL agent not available (check API keys)"), nil
		}

		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}

		queryID := uuid.New().String()
		answer, err := deps.Agent.Ask(ctx, question)
		if err != nil {
			return mcpError(fmt.Sprintf("query failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"query_id":  queryID,
			"question":  question,
			"sql_query": answer.SQL,
			"row_count": answer.Result.RowCount(),
			"data":      serializeRows(answer.Result),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpRunSQL(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sqlText, err := req.RequireString("sql")
		if err != nil {
			return mcpError("sql is required"), nil
		}

		limit := req.GetInt("limit", 100)
		if limit <= 0 {
			limit = 100
		}
		if limit > maxRowLimit {
			limit = maxRowLimit
		}
		if !containsLimit(sqlText) {
			sqlText = fmt.Sprintf("%s LIMIT %d", sqlText, limit)
		}

		res, err := deps.Runner.Execute(ctx, sqlText)
		if err != nil {
			return mcpError(fmt.Sprintf("execution failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"row_count": res.RowCount(),
			"data":      serializeRows(res),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpListViews(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		defs := deps.Views.List()

		type viewSummary struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Tags        []string `json:"tags,omitempty"`
		}

		summaries := make([]viewSummary, len(defs))
		for i, def := range defs {
			summaries[i] = viewSummary{
				Name:        def.Name,
				Description: def.Description,
				Tags:        def.Tags,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal views: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpGetView(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		def, ok := deps.Views.Get(name)
		if !ok {
			return mcpError(fmt.Sprintf("view %q not found", name)), nil
		}

		b, err := json.Marshal(def)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal view: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceCatalog(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		defs := deps.Views.List()

		b, err := json.Marshal(defs)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal catalog: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
