package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cgraph/cgraph/internal/ingest"
	"github.com/cgraph/cgraph/internal/runerr"
)

// UpsertNode implements ingest.Ingestor: insert-or-update a node keyed on
// (project, label, key), last-write-wins on properties per spec.md 3.4.
func (s *Store) UpsertNode(ctx context.Context, n ingest.Node) error {
	if s.project == "" {
		return runerr.InvariantViolation(n.Key, fmt.Errorf("store: no active project, call UseProject first"))
	}
	_, err := s.q.Exec(`
		INSERT INTO nodes (project, label, key, properties)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(project, label, key) DO UPDATE SET properties=excluded.properties`,
		s.project, n.Label, n.Key, marshalProps(n.Props))
	if err != nil {
		return runerr.SinkError(n.Key, fmt.Errorf("upsert node: %w", err))
	}
	return nil
}

// FlushNodes is a no-op beyond the per-call Exec already being
// auto-committed (outside an explicit WithTransaction); it exists to
// satisfy ingest.Ingestor's flush boundary.
func (s *Store) FlushNodes(ctx context.Context) error { return nil }

// NodeRecord is a materialized row, used by tests and CountNodes-style
// introspection.
type NodeRecord struct {
	ID    int64
	Label string
	Key   string
	Props map[string]any
}

// FindNode looks up one node by label+key within the active project.
func (s *Store) FindNode(label, key string) (*NodeRecord, error) {
	row := s.q.QueryRow(`SELECT id, label, key, properties FROM nodes WHERE project=? AND label=? AND key=?`,
		s.project, label, key)
	var rec NodeRecord
	var props string
	err := row.Scan(&rec.ID, &rec.Label, &rec.Key, &props)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Props = unmarshalProps(props)
	return &rec, nil
}

// CountNodes returns the number of nodes stored for the active project,
// optionally filtered by label ("" for all labels).
func (s *Store) CountNodes(label string) (int, error) {
	var count int
	var err error
	if label == "" {
		err = s.q.QueryRow("SELECT COUNT(*) FROM nodes WHERE project=?", s.project).Scan(&count)
	} else {
		err = s.q.QueryRow("SELECT COUNT(*) FROM nodes WHERE project=? AND label=?", s.project, label).Scan(&count)
	}
	return count, err
}
