// Package views manages the durable catalog of named SQL views: creation
// (validated against a live engine connection before anything is persisted),
// discovery, and deletion.
package views

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/convoql/internal/engine"
)

const fileVersion = "1.0"

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

var validIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store owns the mapping from view name to definition, backed by a single
// JSON file. The whole file is read at Open and rewritten on every mutation;
// a store-scoped mutex serializes the read-modify-write cycle.
type Store struct {
	path      string
	tablePath string // s3 glob of the source parquet files, used by the default catalog
	open      func(ctx context.Context) (engine.Session, error)
	clock     Clock

	mu   sync.Mutex
	file File
}

// Open loads the backing file, bootstrapping an empty versioned container if
// it is absent. A present-but-unparseable file yields a usable store with an
// empty container plus a CorruptStoreError so the corruption is never
// silently lost.
func Open(path, tablePath string, adapter *engine.Adapter) (*Store, error) {
	return openWith(path, tablePath, func(ctx context.Context) (engine.Session, error) {
		return adapter.Open(ctx)
	}, realClock{})
}

func openWith(path, tablePath string, open func(ctx context.Context) (engine.Session, error), clock Clock) (*Store, error) {
	s := &Store{
		path:      path,
		tablePath: tablePath,
		open:      open,
		clock:     clock,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.file = File{
			Version: fileVersion,
			Created: clock.Now(),
			Views:   map[string]Definition{},
		}
		if err := s.persist(); err != nil {
			return nil, fmt.Errorf("bootstrapping views config: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading views config: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		slog.Error("views config is corrupt, starting with empty catalog", "path", path, "error", err)
		s.file = File{
			Version: fileVersion,
			Created: clock.Now(),
			Views:   map[string]Definition{},
		}
		return s, &CorruptStoreError{Path: path, Err: err}
	}
	if file.Views == nil {
		file.Views = map[string]Definition{}
	}
	s.file = file
	return s, nil
}

// persist rewrites the whole backing file. Caller holds s.mu (or is Open).
func (s *Store) persist() error {
	s.file.LastUpdated = s.clock.Now()

	data, err := json.MarshalIndent(s.file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling views config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating views config dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing views config: %w", err)
	}
	return nil
}

// Create validates the definition against a throwaway engine connection and
// persists it. The probe runs the query limited to one row, then confirms the
// engine accepts it as a view body. Nothing is persisted unless both succeed.
// On replace of an existing name the original Created timestamp is preserved.
func (s *Store) Create(ctx context.Context, name, description, sqlQuery string, tags []string, replace bool) (Definition, error) {
	if !validIdent.MatchString(name) {
		return Definition{}, &InvalidDefinitionError{Name: name, Err: fmt.Errorf("%q is not a valid SQL identifier", name)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prior, exists := s.file.Views[name]
	if exists && !replace {
		return Definition{}, &DuplicateError{Name: name}
	}

	conn, err := s.open(ctx)
	if err != nil {
		return Definition{}, err
	}
	defer conn.Close()

	probe := fmt.Sprintf("SELECT * FROM (%s) LIMIT 1", sqlQuery)
	if err := conn.Exec(ctx, probe); err != nil {
		return Definition{}, &InvalidDefinitionError{Name: name, Err: err}
	}
	if err := conn.Exec(ctx, engine.MaterializeSQL(name, sqlQuery)); err != nil {
		return Definition{}, &InvalidDefinitionError{Name: name, Err: err}
	}

	now := s.clock.Now()
	def := Definition{
		Name:        name,
		Description: description,
		SQLQuery:    sqlQuery,
		Tags:        tags,
		Created:     now,
		Updated:     now,
	}
	if def.Tags == nil {
		def.Tags = []string{}
	}
	if exists {
		def.Created = prior.Created
	}

	s.file.Views[name] = def
	if err := s.persist(); err != nil {
		// Keep memory and disk consistent: roll back the in-memory entry.
		if exists {
			s.file.Views[name] = prior
		} else {
			delete(s.file.Views, name)
		}
		return Definition{}, err
	}

	slog.Info("created view", "name", name, "replace", exists)
	return def, nil
}

// Get returns the definition for name, if present.
func (s *Store) Get(name string) (Definition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.file.Views[name]
	return def, ok
}

// List returns all definitions sorted by name. The backing container is a
// name-keyed map, so insertion order is not preserved.
func (s *Store) List() []Definition {
	s.mu.Lock()
	defer s.mu.Unlock()

	defs := make([]Definition, 0, len(s.file.Views))
	for _, def := range s.file.Views {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Delete drops the view from the engine and removes it from the persisted
// store. It returns false without error when the view does not exist; an
// engine-level failure propagates rather than masquerading as absence.
func (s *Store) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.file.Views[name]; !ok {
		return false, nil
	}

	conn, err := s.open(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Close()

	if err := conn.Exec(ctx, fmt.Sprintf("DROP VIEW IF EXISTS %s", name)); err != nil {
		return false, fmt.Errorf("dropping view %q: %w", name, err)
	}

	delete(s.file.Views, name)
	if err := s.persist(); err != nil {
		return false, err
	}

	slog.Info("deleted view", "name", name)
	return true, nil
}

// DescribeColumns returns the column names the view produces, probing the
// defining query in a throwaway connection. This is advisory metadata for
// prompt display: any failure degrades to an empty result, never an error.
func (s *Store) DescribeColumns(ctx context.Context, name string) []string {
	s.mu.Lock()
	def, ok := s.file.Views[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	conn, err := s.open(ctx)
	if err != nil {
		slog.Warn("could not probe view columns", "view", name, "error", err)
		return nil
	}
	defer conn.Close()

	cols, err := conn.Columns(ctx, def.SQLQuery)
	if err != nil {
		slog.Warn("could not probe view columns", "view", name, "error", err)
		return nil
	}
	return cols
}

// AgentViews returns an immutable snapshot of the catalog shaped for prompt
// building, with a just-in-time column probe per view.
func (s *Store) AgentViews(ctx context.Context) []AgentView {
	defs := s.List()
	out := make([]AgentView, 0, len(defs))
	for _, def := range defs {
		out = append(out, AgentView{
			Name:        def.Name,
			Description: def.Description,
			Usage:       fmt.Sprintf("SELECT * FROM %s", def.Name),
			Tags:        strings.Join(def.Tags, ", "),
			Columns:     s.DescribeColumns(ctx, def.Name),
		})
	}
	return out
}

// EngineViews returns the name/query pairs the executor re-materializes into
// every fresh connection.
func (s *Store) EngineViews() []engine.ViewRef {
	defs := s.List()
	refs := make([]engine.ViewRef, len(defs))
	for i, def := range defs {
		refs[i] = engine.ViewRef{Name: def.Name, Query: def.SQLQuery}
	}
	return refs
}
