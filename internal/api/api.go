// Package api exposes the analytics core over HTTP (chi) and MCP. Handlers
// own status mapping and JSON serialization; error-to-response policy lives
// here, not in the core packages.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/convoql/internal/agent"
	"github.com/kalambet/convoql/internal/engine"
	"github.com/kalambet/convoql/internal/views"
)

const (
	serviceName    = "Conversation Analytics API"
	serviceVersion = "1.0.0"

	maxRequestBodySize = 1 << 20 // 1MB
	minRowLimit        = 1
	maxRowLimit        = 10000
)

// ViewCatalog is the slice of the view store the API needs.
type ViewCatalog interface {
	List() []views.Definition
	Get(name string) (views.Definition, bool)
	Create(ctx context.Context, name, description, sqlQuery string, tags []string, replace bool) (views.Definition, error)
	Delete(ctx context.Context, name string) (bool, error)
	DescribeColumns(ctx context.Context, name string) []string
}

// Asker is the AI-driven query path. Nil when no AI credentials are
// configured; the handlers answer 503 in that case.
type Asker interface {
	Ask(ctx context.Context, question string) (agent.Answer, error)
	GenerateSQL(ctx context.Context, question string) (string, error)
}

// Runner executes raw SQL with views re-materialized first.
type Runner interface {
	Execute(ctx context.Context, sqlText string) (engine.Result, error)
}

// LakeChecker probes object store reachability for health reporting.
type LakeChecker interface {
	CheckBucket(ctx context.Context) error
}

type Deps struct {
	Views  ViewCatalog
	Agent  Asker // optional
	Runner Runner
	Lake   LakeChecker // optional
}

// NewHandler builds the REST router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth(deps))
	r.Get("/views", handleListViews(deps))
	r.Post("/views", handleCreateView(deps))
	r.Get("/views/{name}", handleGetView(deps))
	r.Delete("/views/{name}", handleDeleteView(deps))
	r.Get("/views/{name}/execute", handleExecuteView(deps))
	r.Post("/query", handleQuery(deps))
	r.Get("/query", handleQueryGet(deps))

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   serviceName,
		"version":   serviceVersion,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]bool{
			"view_store": deps.Views != nil,
			"sql_agent":  deps.Agent != nil,
		}
		if deps.Lake != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()
			components["lake"] = deps.Lake.CheckBucket(ctx) == nil
		}

		status := "healthy"
		for _, ok := range components {
			if !ok {
				status = "degraded"
				break
			}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     status,
			"components": components,
			"timestamp":  time.Now().Format(time.RFC3339),
		})
	}
}

// ViewInfo is the list-view projection, including the advisory column probe.
type ViewInfo struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Tags          []string `json:"tags"`
	Created       string   `json:"created"`
	Updated       string   `json:"updated"`
	SampleColumns []string `json:"sample_columns"`
}

func handleListViews(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defs := deps.Views.List()
		infos := make([]ViewInfo, 0, len(defs))
		for _, def := range defs {
			cols := deps.Views.DescribeColumns(r.Context(), def.Name)
			if cols == nil {
				cols = []string{}
			}
			infos = append(infos, ViewInfo{
				Name:          def.Name,
				Description:   def.Description,
				Tags:          def.Tags,
				Created:       def.Created.Format(time.RFC3339),
				Updated:       def.Updated.Format(time.RFC3339),
				SampleColumns: cols,
			})
		}
		writeJSON(w, http.StatusOK, infos)
	}
}

func handleGetView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		def, ok := deps.Views.Get(name)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "view %q not found", name)
			return
		}
		writeJSON(w, http.StatusOK, def)
	}
}

// CreateViewRequest mirrors the persisted definition fields plus the replace
// flag.
type CreateViewRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQLQuery    string   `json:"sql_query"`
	Tags        []string `json:"tags"`
	Replace     bool     `json:"replace"`
}

func handleCreateView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req CreateViewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Name == "" || req.SQLQuery == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "name and sql_query are required")
			return
		}

		def, err := deps.Views.Create(r.Context(), req.Name, req.Description, req.SQLQuery, req.Tags, req.Replace)
		if err != nil {
			var dup *views.DuplicateError
			var invalid *views.InvalidDefinitionError
			switch {
			case errors.As(err, &dup):
				httpError(w, http.StatusConflict, "duplicate_name", "%v", err)
			case errors.As(err, &invalid):
				httpError(w, http.StatusBadRequest, "invalid_view_definition", "%v", err)
			default:
				httpError(w, http.StatusBadGateway, "engine_error", "%v", err)
			}
			return
		}

		writeJSON(w, http.StatusCreated, def)
	}
}

func handleDeleteView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		deleted, err := deps.Views.Delete(r.Context(), name)
		if err != nil {
			httpError(w, http.StatusBadGateway, "engine_error", "%v", err)
			return
		}
		if !deleted {
			httpError(w, http.StatusNotFound, "not_found", "view %q not found", name)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ViewExecutionResponse reports one view run. Execution failures come back as
// a populated error with a zero row count rather than a raised status.
type ViewExecutionResponse struct {
	ViewName        string           `json:"view_name"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
	RowCount        int              `json:"row_count"`
	Data            []map[string]any `json:"data"`
	Error           string           `json:"error,omitempty"`
}

func handleExecuteView(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if _, ok := deps.Views.Get(name); !ok {
			httpError(w, http.StatusNotFound, "not_found", "view %q not found", name)
			return
		}

		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		query := fmt.Sprintf("SELECT * FROM %s", name)
		if limit > 0 {
			query = fmt.Sprintf("%s LIMIT %d", query, limit)
		}

		start := time.Now()
		res, err := deps.Runner.Execute(r.Context(), query)
		elapsed := msSince(start)

		if err != nil {
			slog.Error("view execution failed", "view", name, "error", err)
			writeJSON(w, http.StatusOK, ViewExecutionResponse{
				ViewName:        name,
				ExecutionTimeMs: elapsed,
				Data:            []map[string]any{},
				Error:           err.Error(),
			})
			return
		}

		data := serializeRows(res)
		writeJSON(w, http.StatusOK, ViewExecutionResponse{
			ViewName:        name,
			ExecutionTimeMs: elapsed,
			RowCount:        len(data),
			Data:            data,
		})
	}
}

// QueryRequest is the AI-driven query input.
type QueryRequest struct {
	Question string `json:"question"`
	Debug    bool   `json:"debug"`
}

// QueryResponse reports one AI-driven query. SQLQuery is set in debug mode
// and always matches the statement that was executed.
type QueryResponse struct {
	QueryID         string           `json:"query_id"`
	Question        string           `json:"question"`
	SQLQuery        string           `json:"sql_query,omitempty"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
	RowCount        int              `json:"row_count"`
	Data            []map[string]any `json:"data"`
	Error           string           `json:"error,omitempty"`
}

func handleQuery(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Agent == nil {
			httpError(w, http.StatusServiceUnavailable, "agent_unavailable", "SQL agent not available (check API keys)")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		queryID := uuid.New().String()
		start := time.Now()
		answer, err := deps.Agent.Ask(r.Context(), req.Question)
		elapsed := msSince(start)

		if err != nil {
			slog.Error("AI query failed", "query_id", queryID, "question", req.Question, "error", err)
			writeJSON(w, http.StatusOK, QueryResponse{
				QueryID:         queryID,
				Question:        req.Question,
				ExecutionTimeMs: elapsed,
				Data:            []map[string]any{},
				Error:           err.Error(),
			})
			return
		}

		resp := QueryResponse{
			QueryID:         queryID,
			Question:        req.Question,
			ExecutionTimeMs: elapsed,
			RowCount:        answer.Result.RowCount(),
			Data:            serializeRows(answer.Result),
		}
		if req.Debug {
			resp.SQLQuery = answer.SQL
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleQueryGet(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Agent == nil {
			httpError(w, http.StatusServiceUnavailable, "agent_unavailable", "SQL agent not available (check API keys)")
			return
		}

		q := r.URL.Query().Get("q")
		if q == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query parameter q is required")
			return
		}
		debug := r.URL.Query().Get("debug") == "true"
		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		queryID := uuid.New().String()
		start := time.Now()

		sqlText, err := deps.Agent.GenerateSQL(r.Context(), q)
		if err == nil {
			if limit > 0 && !containsLimit(sqlText) {
				sqlText = fmt.Sprintf("%s LIMIT %d", sqlText, limit)
			}
			var res engine.Result
			res, err = deps.Runner.Execute(r.Context(), sqlText)
			if err == nil {
				resp := QueryResponse{
					QueryID:         queryID,
					Question:        q,
					ExecutionTimeMs: msSince(start),
					RowCount:        res.RowCount(),
					Data:            serializeRows(res),
				}
				if debug {
					resp.SQLQuery = sqlText
				}
				writeJSON(w, http.StatusOK, resp)
				return
			}
		}

		slog.Error("AI query failed", "query_id", queryID, "question", q, "error", err)
		writeJSON(w, http.StatusInternalServerError, QueryResponse{
			QueryID:         queryID,
			Question:        q,
			ExecutionTimeMs: msSince(start),
			Data:            []map[string]any{},
			Error:           err.Error(),
		})
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer, got %q", raw)
	}
	if limit < minRowLimit || limit > maxRowLimit {
		return 0, fmt.Errorf("limit must be between %d and %d", minRowLimit, maxRowLimit)
	}
	return limit, nil
}

var limitClause = regexp.MustCompile(`(?i)\bLIMIT\b`)

func containsLimit(sqlText string) bool {
	return limitClause.MatchString(sqlText)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
