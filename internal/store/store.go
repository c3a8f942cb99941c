// Package store implements the online graph backend (spec.md 4.8, 6.1):
// SQLite-as-property-graph with MERGE-style upserts. Grounded on the
// teacher's store.go/nodes.go/edges.go/projects.go connection and upsert
// patterns, generalized from the teacher's QN-only node key to the full
// keying scheme the pipeline uses (QN for code entities, repo-relative
// path for File, dotted folder QN for Folder/Package, bare name for
// Project/ExternalPackage) and adapted to
// implement internal/ingest.Ingestor directly.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cgraph/cgraph/internal/ingest"
	"github.com/cgraph/cgraph/internal/runerr"
)

// Querier abstracts *sql.DB and *sql.Tx so store methods work in both
// contexts, exactly as the teacher's store.go does.
type Querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store wraps a SQLite connection and implements ingest.Ingestor.
type Store struct {
	db      *sql.DB
	q       Querier
	dbPath  string
	project string // active project scope for UpsertNode/UpsertEdge
}

var _ ingest.Ingestor = (*Store)(nil)

// DBPath reports the filesystem path of the database backing this Store.
func (s *Store) DBPath() string { return s.dbPath }

// cacheDir returns the default cache directory for project databases.
func cacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	dir := filepath.Join(home, ".cache", "cgraph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir cache: %w", err)
	}
	return dir, nil
}

// Open opens or creates a SQLite database for the given project under the
// default cache directory.
func Open(project string) (*Store, error) {
	dir, err := cacheDir()
	if err != nil {
		return nil, runerr.ConfigError(project, err)
	}
	return OpenPath(filepath.Join(dir, project+".db"))
}

// OpenPath opens a SQLite database at the given path, running schema
// migrations idempotently.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, runerr.ConfigError(dbPath, fmt.Errorf("open db: %w", err))
	}
	s := &Store{db: db, dbPath: dbPath}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, runerr.ConfigError(dbPath, fmt.Errorf("init schema: %w", err))
	}
	return s, nil
}

// OpenMemory opens an in-memory SQLite database, used by tests.
func OpenMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, runerr.ConfigError(":memory:", fmt.Errorf("open memory db: %w", err))
	}
	s := &Store{db: db, dbPath: ":memory:"}
	s.q = s.db
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, runerr.ConfigError(":memory:", fmt.Errorf("init schema: %w", err))
	}
	return s, nil
}

// WithTransaction executes fn within a single SQLite transaction. The
// callback receives a transaction-scoped Store; s itself is untouched.
func (s *Store) WithTransaction(fn func(txStore *Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	txStore := &Store{db: s.db, q: tx, dbPath: s.dbPath}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Close closes the database connection (spec.md 6.1 scoped-acquisition
// exit).
func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

// EnsureConstraints is a no-op beyond schema creation: OpenPath/OpenMemory
// already ran initSchema, matching spec.md 6.1's ensure_constraints
// contract being idempotent and safe to call repeatedly.
func (s *Store) EnsureConstraints(ctx context.Context) error {
	return s.initSchema()
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		indexed_at TEXT NOT NULL,
		root_path TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS file_hashes (
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		rel_path TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (project, rel_path)
	);

	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		label TEXT NOT NULL,
		key TEXT NOT NULL,
		properties TEXT NOT NULL DEFAULT '{}',
		UNIQUE(project, label, key)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_label ON nodes(project, label);
	CREATE INDEX IF NOT EXISTS idx_nodes_key ON nodes(project, key);

	CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project TEXT NOT NULL REFERENCES projects(name) ON DELETE CASCADE,
		source_label TEXT NOT NULL,
		source_key TEXT NOT NULL,
		type TEXT NOT NULL,
		target_label TEXT NOT NULL,
		target_key TEXT NOT NULL,
		properties TEXT NOT NULL DEFAULT '{}',
		UNIQUE(project, source_key, type, target_key)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(project, source_key, type);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(project, target_key, type);
	CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(project, type);
	`
	_, err := s.db.Exec(schema)
	return err
}

func marshalProps(props map[string]any) string {
	if props == nil {
		return "{}"
	}
	b, err := json.Marshal(props)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func unmarshalProps(data string) map[string]any {
	if data == "" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return map[string]any{}
	}
	return m
}

// Now returns the current time in ISO 8601 / RFC3339 format, used for
// projects.indexed_at.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
