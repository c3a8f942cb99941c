package ingest

import (
	"context"
	"testing"
)

// fakeSink records calls rather than persisting anything, so Buffer's
// batching/ordering behavior can be asserted without a real backend.
type fakeSink struct {
	upsertedNodes []Node
	upsertedEdges []Edge
	flushOrder    []string
}

func (f *fakeSink) EnsureConstraints(ctx context.Context) error { return nil }

func (f *fakeSink) UpsertNode(ctx context.Context, n Node) error {
	f.upsertedNodes = append(f.upsertedNodes, n)
	return nil
}

func (f *fakeSink) UpsertEdge(ctx context.Context, e Edge) error {
	f.upsertedEdges = append(f.upsertedEdges, e)
	return nil
}

func (f *fakeSink) FlushNodes(ctx context.Context) error {
	f.flushOrder = append(f.flushOrder, "nodes")
	return nil
}

func (f *fakeSink) FlushEdges(ctx context.Context) error {
	f.flushOrder = append(f.flushOrder, "edges")
	return nil
}

func (f *fakeSink) FlushAll(ctx context.Context) error {
	f.flushOrder = append(f.flushOrder, "all")
	return nil
}

func (f *fakeSink) Clean(ctx context.Context, project string) error        { return nil }
func (f *fakeSink) ListProjects(ctx context.Context) ([]Project, error)    { return nil, nil }
func (f *fakeSink) DeleteProject(ctx context.Context, name string) error   { return nil }
func (f *fakeSink) Close(ctx context.Context) error                       { return nil }

func TestBufferAutoFlushesAtBatchSize(t *testing.T) {
	sink := &fakeSink{}
	buf := NewBuffer(sink, 2)
	ctx := context.Background()

	buf.AddNode(ctx, Node{Label: "Class", Key: "proj.A"})
	if len(sink.upsertedNodes) != 0 {
		t.Fatal("expected no flush before batch size reached")
	}
	buf.AddNode(ctx, Node{Label: "Class", Key: "proj.B"})
	if len(sink.upsertedNodes) != 2 {
		t.Fatalf("expected auto-flush at batch size, got %d", len(sink.upsertedNodes))
	}
	if buf.PendingNodes() != 0 {
		t.Error("expected pending queue cleared after flush")
	}
}

func TestFlushAllOrdersNodesBeforeEdges(t *testing.T) {
	sink := &fakeSink{}
	buf := NewBuffer(sink, 100)
	ctx := context.Background()

	buf.AddEdge(ctx, Edge{From: NodeRef{Label: "Module", Key: "proj.a"}, Type: "DEFINES", To: NodeRef{Label: "Class", Key: "proj.a.Foo"}})
	buf.AddNode(ctx, Node{Label: "Class", Key: "proj.a.Foo"})

	if err := buf.FlushAll(ctx); err != nil {
		t.Fatalf("FlushAll: %v", err)
	}
	if len(sink.flushOrder) < 2 || sink.flushOrder[0] != "nodes" || sink.flushOrder[1] != "edges" {
		t.Errorf("expected nodes flushed before edges, got %v", sink.flushOrder)
	}
	if len(sink.upsertedNodes) != 1 || len(sink.upsertedEdges) != 1 {
		t.Errorf("expected exactly one node and one edge upserted, got %d/%d", len(sink.upsertedNodes), len(sink.upsertedEdges))
	}
}

func TestDefaultBatchSizeAppliedWhenNonPositive(t *testing.T) {
	buf := NewBuffer(&fakeSink{}, 0)
	if buf.batchSize != DefaultBatchSize {
		t.Errorf("expected default batch size %d, got %d", DefaultBatchSize, buf.batchSize)
	}
}
