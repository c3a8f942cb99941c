package offlineindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cgraph/cgraph/internal/ingest"
)

func TestWriteAndReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.cgix")

	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	node := ingest.Node{Label: "Class", Key: "demo.pkg.Widget", Props: map[string]any{"name": "Widget"}}
	edge := ingest.Edge{
		From: ingest.NodeRef{Label: "Module", Key: "demo.pkg"},
		Type: "DEFINES",
		To:   ingest.NodeRef{Label: "Class", Key: "demo.pkg.Widget"},
	}
	if err := w.PutNode(node); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	if err := w.PutEdge(edge); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	var gotNodes []ingest.Node
	var gotEdges []ingest.Edge
	err = r.Each(
		func(n ingest.Node) error { gotNodes = append(gotNodes, n); return nil },
		func(e ingest.Edge) error { gotEdges = append(gotEdges, e); return nil },
		nil,
	)
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(gotNodes) != 1 || gotNodes[0].Key != "demo.pkg.Widget" {
		t.Fatalf("expected 1 node round-tripped, got %v", gotNodes)
	}
	if len(gotEdges) != 1 || gotEdges[0].Type != "DEFINES" {
		t.Fatalf("expected 1 edge round-tripped, got %v", gotEdges)
	}
}

func TestSplitWriterSeparatesNodesAndEdges(t *testing.T) {
	dir := t.TempDir()
	nodesPath := filepath.Join(dir, "nodes.cgix")
	edgesPath := filepath.Join(dir, "edges.cgix")

	w, err := NewSplitWriter(nodesPath, edgesPath)
	if err != nil {
		t.Fatalf("NewSplitWriter: %v", err)
	}
	if err := w.PutNode(ingest.Node{Label: "File", Key: "pkg/widget.go"}); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	if err := w.PutEdge(ingest.Edge{
		From: ingest.NodeRef{Label: "Folder", Key: "pkg"},
		Type: "CONTAINS",
		To:   ingest.NodeRef{Label: "File", Key: "pkg/widget.go"},
	}); err != nil {
		t.Fatalf("PutEdge: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	nr, err := OpenReader(nodesPath)
	if err != nil {
		t.Fatalf("OpenReader(nodes): %v", err)
	}
	defer nr.Close()
	var nodeCount, edgeInNodesFile int
	nr.Each(
		func(n ingest.Node) error { nodeCount++; return nil },
		func(e ingest.Edge) error { edgeInNodesFile++; return nil },
		nil,
	)
	if nodeCount != 1 || edgeInNodesFile != 0 {
		t.Errorf("expected only the node in the nodes file, got nodes=%d edges=%d", nodeCount, edgeInNodesFile)
	}

	er, err := OpenReader(edgesPath)
	if err != nil {
		t.Fatalf("OpenReader(edges): %v", err)
	}
	defer er.Close()
	var edgeCount int
	er.Each(nil, func(e ingest.Edge) error { edgeCount++; return nil }, nil)
	if edgeCount != 1 {
		t.Errorf("expected 1 edge in the edges file, got %d", edgeCount)
	}
}

func TestIngestorAdapterSatisfiesInterface(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(filepath.Join(dir, "index.cgix"))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	ix := NewIngestor(w, "demo")
	ctx := context.Background()

	if err := ix.EnsureConstraints(ctx); err != nil {
		t.Fatalf("EnsureConstraints: %v", err)
	}
	if err := ix.UpsertNode(ctx, ingest.Node{Label: "Class", Key: "demo.pkg.Widget"}); err != nil {
		t.Fatalf("UpsertNode: %v", err)
	}
	if err := ix.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := ix.Clean(ctx, "demo"); err == nil {
		t.Error("expected Clean to be unsupported on a write-once container")
	}
}

func TestReaderSkipsUnknownTag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.cgix")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	// Write a frame with a tag the current reader doesn't special-case,
	// simulating a newer writer's schema addition.
	if err := writeFrame(w.nodesW, w.hash, tag(99), record{Key: "future-feature"}); err != nil {
		t.Fatalf("writeFrame: %v", err)
	}
	if err := w.PutNode(ingest.Node{Label: "Class", Key: "demo.pkg.Widget"}); err != nil {
		t.Fatalf("PutNode: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()

	var nodeCount int
	if err := r.Each(func(n ingest.Node) error { nodeCount++; return nil }, nil, nil); err != nil {
		t.Fatalf("Each: %v", err)
	}
	if nodeCount != 1 {
		t.Errorf("expected the unknown-tag frame to be skipped and the node still read, got %d nodes", nodeCount)
	}
}
