package store

import (
	"context"
	"testing"

	"github.com/cgraph/cgraph/internal/ingest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	if err := s.UseProject("demo", "/repo"); err != nil {
		t.Fatalf("UseProject: %v", err)
	}
	return s
}

func TestUpsertNodeInsertsAndUpdates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertNode(ctx, ingest.Node{Label: "Class", Key: "demo.pkg.Widget", Props: map[string]any{"name": "Widget"}}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if err := s.UpsertNode(ctx, ingest.Node{Label: "Class", Key: "demo.pkg.Widget", Props: map[string]any{"name": "Widget", "docstring": "updated"}}); err != nil {
		t.Fatalf("UpsertNode (update): %v", err)
	}

	count, err := s.CountNodes("")
	if err != nil {
		t.Fatalf("CountNodes: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 node after re-upsert, got %d", count)
	}

	rec, err := s.FindNode("Class", "demo.pkg.Widget")
	if err != nil || rec == nil {
		t.Fatalf("FindNode: %v, rec=%v", err, rec)
	}
	if rec.Props["docstring"] != "updated" {
		t.Errorf("expected last-write-wins property update, got %v", rec.Props)
	}
}

func TestUpsertEdgeDedupsOnSourceTypeTarget(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	edge := ingest.Edge{
		From: ingest.NodeRef{Label: "Module", Key: "demo.pkg"},
		Type: "DEFINES",
		To:   ingest.NodeRef{Label: "Class", Key: "demo.pkg.Widget"},
	}
	if err := s.UpsertEdge(ctx, edge); err != nil {
		t.Fatalf("UpsertEdge: %v", err)
	}
	if err := s.UpsertEdge(ctx, edge); err != nil {
		t.Fatalf("UpsertEdge (dup): %v", err)
	}

	count, err := s.CountEdges("")
	if err != nil {
		t.Fatalf("CountEdges: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected edge dedup, got %d edges", count)
	}
}

func TestCleanProjectRemovesNodesAndEdgesNotProjectRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.UpsertNode(ctx, ingest.Node{Label: "Class", Key: "demo.pkg.Widget"})
	s.UpsertEdge(ctx, ingest.Edge{
		From: ingest.NodeRef{Label: "Module", Key: "demo.pkg"},
		Type: "DEFINES",
		To:   ingest.NodeRef{Label: "Class", Key: "demo.pkg.Widget"},
	})

	if err := s.Clean(ctx, "demo"); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	nodeCount, _ := s.CountNodes("")
	edgeCount, _ := s.CountEdges("")
	if nodeCount != 0 || edgeCount != 0 {
		t.Fatalf("expected clean project, got %d nodes, %d edges", nodeCount, edgeCount)
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 1 || projects[0].Name != "demo" {
		t.Errorf("expected project row to survive Clean, got %v", projects)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	s.UpsertNode(ctx, ingest.Node{Label: "Class", Key: "demo.pkg.Widget"})
	if err := s.DeleteProject(ctx, "demo"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}

	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("expected no projects after delete, got %v", projects)
	}
}

func TestFileHashRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertFileHash("pkg/widget.go", "abc123"); err != nil {
		t.Fatalf("UpsertFileHash: %v", err)
	}
	hashes, err := s.FileHashes()
	if err != nil {
		t.Fatalf("FileHashes: %v", err)
	}
	if hashes["pkg/widget.go"] != "abc123" {
		t.Errorf("expected recorded hash, got %v", hashes)
	}
}
