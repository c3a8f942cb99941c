// Package ingest defines the sink interface both graph backends implement
// (spec.md 4.8, 6.1) and a shared batching buffer that auto-flushes at a
// configurable size with node-before-edge ordering, matching the
// teacher's batch-then-flush shape.
package ingest

import "context"

// NodeRef is a node's key plus its label, used on both ends of an edge
// (QN for code entities, repo-relative path for File, dotted folder QN
// for Folder/Package, bare name for Project/ExternalPackage).
type NodeRef struct {
	Label string
	Key   string
}

// Node is one upsert_node call's payload (spec.md 6.1): a label, its key,
// and its attribute properties (spec.md 3.2's per-label attribute list).
type Node struct {
	Label string
	Key   string
	Props map[string]any
}

// Edge is one upsert_edge call's payload: directed, typed, carrying
// optional properties (e.g. CALLS' call-site line).
type Edge struct {
	From  NodeRef
	Type  string
	To    NodeRef
	Props map[string]any
}

// Project describes one indexed project for list_projects/delete_project
// (spec.md 6.1).
type Project struct {
	Name string
}

// Ingestor is the sink interface spec.md 6.1 requires every backend
// implement. Scoped acquisition (connect on Open, flush+close on Close)
// matches the teacher's store.Open/Store.Close pattern.
type Ingestor interface {
	// EnsureConstraints prepares backend-specific uniqueness constraints
	// or indexes (e.g. schema DDL, unique-key definitions) before any
	// upsert is issued.
	EnsureConstraints(ctx context.Context) error

	UpsertNode(ctx context.Context, n Node) error
	UpsertEdge(ctx context.Context, e Edge) error

	FlushNodes(ctx context.Context) error
	FlushEdges(ctx context.Context) error
	FlushAll(ctx context.Context) error

	// Clean removes all data for a project, used before a retry after a
	// partial failure (spec.md 3.5).
	Clean(ctx context.Context, project string) error

	ListProjects(ctx context.Context) ([]Project, error)
	DeleteProject(ctx context.Context, name string) error

	Close(ctx context.Context) error
}

// DefaultBatchSize is used when a Buffer is constructed with a
// non-positive size.
const DefaultBatchSize = 500

// Buffer accumulates nodes and edges and auto-flushes to an underlying
// Ingestor once either queue reaches BatchSize, always flushing nodes
// before edges (spec.md 3.4's DEFINES-before-CALLS dependency, and the
// teacher's UpsertNodeBatch-before-InsertEdgeBatch ordering). Buffer
// itself only batches and does not dedup: repeated nodes and edges (for
// example one CALLS edge per call site) reach the sink, whose upsert
// collapses them.
type Buffer struct {
	sink      Ingestor
	batchSize int

	nodes []Node
	edges []Edge
}

// NewBuffer creates a Buffer wrapping sink, flushing every batchSize
// items (DefaultBatchSize if batchSize <= 0).
func NewBuffer(sink Ingestor, batchSize int) *Buffer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Buffer{sink: sink, batchSize: batchSize}
}

// AddNode enqueues a node, flushing the node queue if it has reached
// BatchSize.
func (b *Buffer) AddNode(ctx context.Context, n Node) error {
	b.nodes = append(b.nodes, n)
	if len(b.nodes) >= b.batchSize {
		return b.FlushNodes(ctx)
	}
	return nil
}

// AddEdge enqueues an edge, flushing any queued nodes and then the edge
// queue if it has reached BatchSize.
func (b *Buffer) AddEdge(ctx context.Context, e Edge) error {
	b.edges = append(b.edges, e)
	if len(b.edges) >= b.batchSize {
		if len(b.nodes) > 0 {
			if err := b.FlushNodes(ctx); err != nil {
				return err
			}
		}
		return b.FlushEdges(ctx)
	}
	return nil
}

// FlushNodes sends every queued node to the sink and clears the queue.
func (b *Buffer) FlushNodes(ctx context.Context) error {
	for _, n := range b.nodes {
		if err := b.sink.UpsertNode(ctx, n); err != nil {
			return err
		}
	}
	b.nodes = b.nodes[:0]
	return b.sink.FlushNodes(ctx)
}

// FlushEdges sends every queued edge to the sink and clears the queue.
func (b *Buffer) FlushEdges(ctx context.Context) error {
	for _, e := range b.edges {
		if err := b.sink.UpsertEdge(ctx, e); err != nil {
			return err
		}
	}
	b.edges = b.edges[:0]
	return b.sink.FlushEdges(ctx)
}

// FlushAll flushes nodes, then edges, then asks the sink to flush
// whatever it buffers internally, preserving spec.md 3.4's
// nodes-before-edges durability ordering.
func (b *Buffer) FlushAll(ctx context.Context) error {
	if err := b.FlushNodes(ctx); err != nil {
		return err
	}
	if err := b.FlushEdges(ctx); err != nil {
		return err
	}
	return b.sink.FlushAll(ctx)
}

// PendingNodes reports how many nodes are queued but not yet flushed.
func (b *Buffer) PendingNodes() int { return len(b.nodes) }

// PendingEdges reports how many edges are queued but not yet flushed.
func (b *Buffer) PendingEdges() int { return len(b.edges) }
