package store

import (
	"context"
	"fmt"

	"github.com/cgraph/cgraph/internal/ingest"
)

// UseProject upserts a projects row and scopes subsequent UpsertNode/
// UpsertEdge calls to it. A Store must call this before any upsert.
func (s *Store) UseProject(name, rootPath string) error {
	_, err := s.q.Exec(`
		INSERT INTO projects (name, indexed_at, root_path) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET indexed_at=excluded.indexed_at, root_path=excluded.root_path`,
		name, Now(), rootPath)
	if err != nil {
		return fmt.Errorf("use project: %w", err)
	}
	s.project = name
	return nil
}

// ListProjects implements ingest.Ingestor.
func (s *Store) ListProjects(ctx context.Context) ([]ingest.Project, error) {
	rows, err := s.q.Query("SELECT name FROM projects ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []ingest.Project
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, ingest.Project{Name: name})
	}
	return out, rows.Err()
}

// DeleteProject implements ingest.Ingestor: removes the project row and,
// via ON DELETE CASCADE, every node/edge/file_hash row scoped to it.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	_, err := s.q.Exec("DELETE FROM projects WHERE name=?", name)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// Clean implements ingest.Ingestor's clean operation (spec.md 3.5): wipe
// everything for project so a caller can retry after a partial failure,
// without removing the project row itself.
func (s *Store) Clean(ctx context.Context, project string) error {
	return s.WithTransaction(func(tx *Store) error {
		if _, err := tx.q.Exec("DELETE FROM edges WHERE project=?", project); err != nil {
			return err
		}
		if _, err := tx.q.Exec("DELETE FROM nodes WHERE project=?", project); err != nil {
			return err
		}
		if _, err := tx.q.Exec("DELETE FROM file_hashes WHERE project=?", project); err != nil {
			return err
		}
		return nil
	})
}

// FileHash is one file's last-indexed content hash, used by the pipeline
// to classify changed-vs-unchanged files on a repeat run.
type FileHash struct {
	RelPath string
	Hash    string
}

// UpsertFileHash records the content hash last seen for relPath.
func (s *Store) UpsertFileHash(relPath, hash string) error {
	_, err := s.q.Exec(`
		INSERT INTO file_hashes (project, rel_path, hash) VALUES (?, ?, ?)
		ON CONFLICT(project, rel_path) DO UPDATE SET hash=excluded.hash`,
		s.project, relPath, hash)
	return err
}

// FileHashes returns every recorded rel_path -> hash pair for the active
// project.
func (s *Store) FileHashes() (map[string]string, error) {
	rows, err := s.q.Query("SELECT rel_path, hash FROM file_hashes WHERE project=?", s.project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		out[path] = hash
	}
	return out, rows.Err()
}
