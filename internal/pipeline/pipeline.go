// Package pipeline orchestrates the seven-pass construction of a code
// knowledge graph (spec.md 2, 5): walk -> parse pool -> structural pass
// -> import pass -> inheritance pass -> type inference -> reference pass
// -> flush. Grounded on the teacher's pipeline.go Run/runFullPasses
// sequencing, generalized from its store-query-per-pass style to an
// in-memory registry built once during the structural pass and read by
// every later pass, matching spec.md 5's single-writer/many-readers
// model.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cgraph/cgraph/internal/ignorefile"
	"github.com/cgraph/cgraph/internal/importresolve"
	"github.com/cgraph/cgraph/internal/ingest"
	"github.com/cgraph/cgraph/internal/registry"
	"github.com/cgraph/cgraph/internal/runerr"
	"github.com/cgraph/cgraph/internal/typeinfer"
	"github.com/cgraph/cgraph/internal/walker"
)

// RunConfig configures a single indexing run.
type RunConfig struct {
	RepoPath    string
	ProjectName string
	Ignore      *ignorefile.Rules
	BatchSize   int
}

// Result summarizes one completed run (spec.md 7's run summary).
type Result struct {
	FilesWalked int
	FilesParsed int
	NodeCount   int
	EdgeCount   int
	Errors      []error
	Duration    time.Duration
}

// Pipeline holds the state shared across passes for one run: the active
// batching buffer, the symbol registry every pass reads and writes, and
// per-module bookkeeping the later passes need (raw class/interface text,
// import maps, function bodies pending reference resolution).
type Pipeline struct {
	cfg     RunConfig
	backend ingest.Ingestor
	sink    *ingest.Buffer
	reg     *registry.Registry

	importProc    *importresolve.Processor
	typeEngine    *typeinfer.Engine
	moduleImports map[string]importresolve.Map

	mu         sync.Mutex
	classInfos []classInfo
	funcInfos  []funcInfo
	errs       []error

	nodeCount   int
	edgeCount   int
	parsedCount int
}

// New builds a Pipeline targeting sink, which is flushed at the end of
// Run. Matches the teacher's New(ctx, store, repoPath) scoped-acquisition
// shape, generalized to any ingest.Ingestor instead of a concrete *store.Store.
func New(sink ingest.Ingestor, cfg RunConfig) *Pipeline {
	if cfg.ProjectName == "" {
		cfg.ProjectName = ProjectNameFromPath(cfg.RepoPath)
	}
	if cfg.Ignore == nil {
		cfg.Ignore = ignorefile.Empty()
	}
	reg := registry.New()
	return &Pipeline{
		cfg:           cfg,
		backend:       sink,
		sink:          ingest.NewBuffer(sink, cfg.BatchSize),
		reg:           reg,
		importProc:    importresolve.New(cfg.ProjectName, reg),
		typeEngine:    typeinfer.New(reg),
		moduleImports: make(map[string]importresolve.Map),
	}
}

// Run executes every pass in spec.md 2's dependency order and flushes the
// sink at the end. A Config-kind error aborts before any pass runs; Parse
// and Resolution errors are recorded but do not abort the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	files, err := walker.Walk(ctx, p.cfg.RepoPath, walker.FromIgnoreRules(p.cfg.Ignore))
	if err != nil {
		return nil, runerr.ConfigError(p.cfg.RepoPath, fmt.Errorf("walk repo: %w", err))
	}

	if err := p.backend.EnsureConstraints(ctx); err != nil {
		return nil, runerr.ConfigError(p.cfg.ProjectName, fmt.Errorf("ensure constraints: %w", err))
	}

	dirIsPackage := p.classifyPackageDirs(files)
	p.emitProjectAndFolders(ctx, files, dirIsPackage)

	if err := p.passStructural(ctx, files, dirIsPackage); err != nil {
		return nil, err
	}
	slog.Info("pass.structural.done", "classes", len(p.classInfos), "functions", len(p.funcInfos))

	p.passImports(ctx)
	slog.Info("pass.imports.done", "modules", len(p.moduleImports))

	p.passInherits(ctx)
	slog.Info("pass.inherits.done")

	p.passReferences(ctx)
	slog.Info("pass.references.done")

	if err := p.sink.FlushAll(ctx); err != nil {
		return nil, runerr.SinkError(p.cfg.ProjectName, fmt.Errorf("final flush: %w", err))
	}

	return &Result{
		FilesWalked: len(files),
		FilesParsed: p.parsedCount,
		NodeCount:   p.nodeCount,
		EdgeCount:   p.edgeCount,
		Errors:      p.errs,
		Duration:    time.Since(start),
	}, nil
}

// ProjectNameFromPath derives a unique project name from an absolute
// path by replacing path separators with dashes and trimming the
// leading dash, matching the teacher's slug convention.
func ProjectNameFromPath(absPath string) string {
	cleaned := filepath.ToSlash(filepath.Clean(absPath))
	name := strings.ReplaceAll(cleaned, "/", "-")
	name = strings.TrimLeft(name, "-")
	if name == "" {
		return "root"
	}
	return name
}

func (p *Pipeline) recordErr(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

// upsertNode and upsertEdge are the only path to the shared ingest.Buffer
// (internal/ingest), which is not safe for concurrent callers (its
// FlushNodes/FlushEdges reslice the backing arrays in place). p.mu guards
// the whole AddNode/AddEdge call, not just the counters, so these remain
// safe even if a future pass calls them from more than one goroutine;
// passStructural itself now only calls them from its single sequential
// registration/emission stage.
func (p *Pipeline) upsertNode(ctx context.Context, label, key string, props map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodeCount++
	return p.sink.AddNode(ctx, ingest.Node{Label: label, Key: key, Props: props})
}

func (p *Pipeline) upsertEdge(ctx context.Context, fromLabel, fromKey, edgeType, toLabel, toKey string, props map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.edgeCount++
	return p.sink.AddEdge(ctx, ingest.Edge{
		From:  ingest.NodeRef{Label: fromLabel, Key: fromKey},
		Type:  edgeType,
		To:    ingest.NodeRef{Label: toLabel, Key: toKey},
		Props: props,
	})
}

// runParallel fans fn out across items with bounded concurrency via
// errgroup, matching the teacher's parallel parse-stage shape
// (errgroup.WithContext + SetLimit).
func runParallel[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
