package views

import (
	"fmt"
	"time"
)

// Definition is a named, persisted SQL view. SQLQuery holds the defining
// SELECT statement without any enclosing CREATE VIEW.
type Definition struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	SQLQuery    string    `json:"sql_query"`
	Tags        []string  `json:"tags"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// File is the durable container persisted as JSON. Its shape is a de facto
// wire contract: external readers must tolerate additive fields.
type File struct {
	Version     string                `json:"version"`
	Created     time.Time             `json:"created"`
	LastUpdated time.Time             `json:"last_updated"`
	Views       map[string]Definition `json:"views"`
}

// AgentView is the snapshot of one view, shaped for prompt building.
type AgentView struct {
	Name        string
	Description string
	Usage       string
	Tags        string // comma-joined
	Columns     []string
}

// DuplicateError reports a create without replace on an existing name.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("view %q already exists (use replace to overwrite)", e.Name)
}

// InvalidDefinitionError reports a definition the engine rejected during the
// validation probe. The store is left unchanged.
type InvalidDefinitionError struct {
	Name string
	Err  error
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid SQL query for view %q: %v", e.Name, e.Err)
}

func (e *InvalidDefinitionError) Unwrap() error { return e.Err }

// CorruptStoreError reports a backing file that exists but cannot be parsed.
// Open still returns a usable store with an empty in-memory container; the
// error surfaces the on-disk corruption to the caller.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("views config %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error { return e.Err }
