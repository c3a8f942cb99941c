// Package offlineindex implements the offline binary-index ingestor
// backend (spec.md 6.2): a length-prefixed container of tagged-union
// node/edge/project records that a later process can merge into an
// online store without re-parsing. Grounded on internal/ingest's
// Node/Edge/Project payload shapes and on the teacher's pipeline.go use
// of github.com/zeebo/xxh3 for content hashing, repurposed here as a
// container checksum.
package offlineindex

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"

	"github.com/zeebo/xxh3"

	"github.com/cgraph/cgraph/internal/ingest"
	"github.com/cgraph/cgraph/internal/runerr"
)

// tag identifies a record's payload type in the container framing. New
// tags can be added without breaking old readers; readers skip tags they
// don't recognize.
type tag byte

const (
	tagNode tag = iota + 1
	tagEdge
	tagProject
)

const magic = "CGIX1\n"

func init() {
	// Props values are `any`; gob needs every concrete type it might see
	// registered up front. These cover the property value shapes the
	// structural/import/reference passes actually produce (spec.md 3.2).
	gob.Register("")
	gob.Register(0)
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register([]string{})
	gob.Register([]any{})
	gob.Register(map[string]any{})
}

// record is the on-disk gob payload for every frame; fields are the
// union of Node/Edge/Project, left zero when not applicable.
type record struct {
	Label    string
	Key      string
	Props    map[string]any
	FromKey  string
	FromLbl  string
	ToKey    string
	ToLbl    string
	EdgeType string
	Project  string
}

// Writer appends frames to one or two files: unified mode writes both
// node and edge records to the same stream; split mode (spec.md 6.2)
// separates them so a merge step can stream nodes and edges
// independently.
type Writer struct {
	nodesW *bufio.Writer
	edgesW *bufio.Writer
	nodesF *os.File
	edgesF *os.File
	split  bool
	hash   *xxh3.Hasher
}

// NewWriter opens path for unified node+edge framing.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, runerr.ConfigError(path, fmt.Errorf("create offline index: %w", err))
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString(magic); err != nil {
		f.Close()
		return nil, runerr.SinkError(path, err)
	}
	return &Writer{nodesW: w, edgesW: w, nodesF: f, hash: xxh3.New()}, nil
}

// NewSplitWriter opens nodesPath and edgesPath separately (spec.md 6.2's
// split mode), so a consumer can stream all nodes before any edge
// without buffering the whole container.
func NewSplitWriter(nodesPath, edgesPath string) (*Writer, error) {
	nf, err := os.Create(nodesPath)
	if err != nil {
		return nil, runerr.ConfigError(nodesPath, fmt.Errorf("create nodes file: %w", err))
	}
	ef, err := os.Create(edgesPath)
	if err != nil {
		nf.Close()
		return nil, runerr.ConfigError(edgesPath, fmt.Errorf("create edges file: %w", err))
	}
	nw := bufio.NewWriter(nf)
	ew := bufio.NewWriter(ef)
	if _, err := nw.WriteString(magic); err != nil {
		nf.Close()
		ef.Close()
		return nil, runerr.SinkError(nodesPath, err)
	}
	if _, err := ew.WriteString(magic); err != nil {
		nf.Close()
		ef.Close()
		return nil, runerr.SinkError(edgesPath, err)
	}
	return &Writer{nodesW: nw, edgesW: ew, nodesF: nf, edgesF: ef, split: true, hash: xxh3.New()}, nil
}

func writeFrame(w *bufio.Writer, h *xxh3.Hasher, t tag, r record) error {
	var buf []byte
	enc := gobEncode(r)
	buf = append(buf, byte(t))
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(enc)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, enc...)
	if _, err := w.Write(buf); err != nil {
		return err
	}
	h.Write(buf)
	return nil
}

func gobEncode(r record) []byte {
	var buf []byte
	bw := &byteSliceWriter{&buf}
	enc := gob.NewEncoder(bw)
	// record is a plain struct with no cyclic references; gob encoding
	// of a fixed concrete type never fails here.
	_ = enc.Encode(r)
	return buf
}

type byteSliceWriter struct{ buf *[]byte }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

// PutNode appends a node record.
func (w *Writer) PutNode(n ingest.Node) error {
	return writeFrame(w.nodesW, w.hash, tagNode, record{Label: n.Label, Key: n.Key, Props: n.Props})
}

// PutEdge appends an edge record.
func (w *Writer) PutEdge(e ingest.Edge) error {
	return writeFrame(w.edgesW, w.hash, tagEdge, record{
		FromLbl: e.From.Label, FromKey: e.From.Key,
		ToLbl: e.To.Label, ToKey: e.To.Key,
		EdgeType: e.Type, Props: e.Props,
	})
}

// PutProject appends a project marker record, written to the nodes
// stream (or the unified stream in non-split mode).
func (w *Writer) PutProject(p ingest.Project) error {
	return writeFrame(w.nodesW, w.hash, tagProject, record{Project: p.Name})
}

// Close flushes buffered frames, appends the trailing checksum, and
// closes the underlying file(s).
func (w *Writer) Close() error {
	sum := w.hash.Sum128()
	var sumBuf [16]byte
	binary.BigEndian.PutUint64(sumBuf[0:8], sum.Hi)
	binary.BigEndian.PutUint64(sumBuf[8:16], sum.Lo)

	if err := w.nodesW.Flush(); err != nil {
		return err
	}
	if w.split {
		if err := w.edgesW.Flush(); err != nil {
			return err
		}
		if _, err := w.edgesF.Write(sumBuf[:]); err != nil {
			return err
		}
		if err := w.edgesF.Close(); err != nil {
			return err
		}
	}
	if _, err := w.nodesF.Write(sumBuf[:]); err != nil {
		return err
	}
	return w.nodesF.Close()
}

// Reader streams records back out of a container written by Writer,
// skipping any tag it does not recognize so a reader built against an
// older schema version tolerates newer writers (spec.md 6.2).
type Reader struct {
	r *bufio.Reader
	f *os.File
}

// OpenReader opens path for sequential reading, verifying the magic
// header. The reader is limited to the bytes before the 16-byte checksum
// trailer, so Each never sees the trailer as a frame.
func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, runerr.ConfigError(path, fmt.Errorf("open offline index: %w", err))
	}
	info, err := f.Stat()
	if err != nil || info.Size() < int64(len(magic))+16 {
		f.Close()
		return nil, runerr.ConfigError(path, fmt.Errorf("not an offline index container: too short or unreadable"))
	}
	r := bufio.NewReader(io.LimitReader(f, info.Size()-16))
	hdr := make([]byte, len(magic))
	if _, err := io.ReadFull(r, hdr); err != nil {
		f.Close()
		return nil, runerr.ConfigError(path, fmt.Errorf("read magic: %w", err))
	}
	if string(hdr) != magic {
		f.Close()
		return nil, runerr.ConfigError(path, fmt.Errorf("not an offline index container: bad magic"))
	}
	return &Reader{r: r, f: f}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error { return r.f.Close() }

// Each calls onNode/onEdge/onProject for every frame in order, skipping
// unrecognized tags. It stops before the 16-byte checksum trailer, which
// OpenReader excludes by file length; the checksum itself is not
// validated.
func (r *Reader) Each(onNode func(ingest.Node) error, onEdge func(ingest.Edge) error, onProject func(ingest.Project) error) error {
	for {
		tagByte, err := r.r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		n, err := binary.ReadUvarint(r.r)
		if err != nil {
			return fmt.Errorf("read frame length: %w", err)
		}
		payload := make([]byte, n)
		if _, err := io.ReadFull(r.r, payload); err != nil {
			return fmt.Errorf("read frame payload: %w", err)
		}
		var rec record
		if err := gob.NewDecoder(newByteReader(payload)).Decode(&rec); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		switch tag(tagByte) {
		case tagNode:
			if onNode != nil {
				if err := onNode(ingest.Node{Label: rec.Label, Key: rec.Key, Props: rec.Props}); err != nil {
					return err
				}
			}
		case tagEdge:
			if onEdge != nil {
				e := ingest.Edge{
					From:  ingest.NodeRef{Label: rec.FromLbl, Key: rec.FromKey},
					To:    ingest.NodeRef{Label: rec.ToLbl, Key: rec.ToKey},
					Type:  rec.EdgeType,
					Props: rec.Props,
				}
				if err := onEdge(e); err != nil {
					return err
				}
			}
		case tagProject:
			if onProject != nil {
				if err := onProject(ingest.Project{Name: rec.Project}); err != nil {
					return err
				}
			}
		default:
			// Unknown tag: already consumed via its length prefix, so
			// simply move on to the next frame (forward compatibility).
		}
	}
}

func newByteReader(b []byte) io.Reader { return &sliceReader{b: b} }

type sliceReader struct {
	b   []byte
	pos int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

// Ingestor adapts a Writer to internal/ingest.Ingestor so the pipeline
// can target the offline backend through the same interface as
// internal/store, matching spec.md 6.2's requirement that either
// back-end be selectable without changing pass code. Project
// bookkeeping (list/delete) is not meaningful for a write-once
// container; those calls are no-ops or errors, since a merge step,
// not the writer, owns project lifecycle once the container is merged
// into an online store.
//
// UpsertNode/UpsertEdge accumulate into in-memory maps keyed on node
// (label, key) and edge (fromLabel, fromKey, type, toLabel, toKey)
// rather than writing a frame per call, so repeat calls for the same
// node or the same edge triple (e.g. two call sites resolving to the
// same CALLS edge, differing only in a "line" prop) collapse into one
// record before Flush writes them out — matching what the online
// backend's MERGE does for the same inputs (spec.md 4.8).
type Ingestor struct {
	w       *Writer
	project string

	nodeOrder []string
	nodes     map[string]ingest.Node

	edgeOrder []string
	edges     map[string]ingest.Edge
}

var _ ingest.Ingestor = (*Ingestor)(nil)

// NewIngestor wraps w, recording project as the active project for
// every node/edge upserted through it.
func NewIngestor(w *Writer, project string) *Ingestor {
	return &Ingestor{
		w:       w,
		project: project,
		nodes:   make(map[string]ingest.Node),
		edges:   make(map[string]ingest.Edge),
	}
}

// EnsureConstraints writes the project marker record; a write-once
// container has no indexes to prepare.
func (ix *Ingestor) EnsureConstraints(ctx context.Context) error {
	return ix.w.PutProject(ingest.Project{Name: ix.project})
}

func nodeDedupKey(n ingest.Node) string {
	return n.Label + "\x00" + n.Key
}

func edgeDedupKey(e ingest.Edge) string {
	return e.From.Label + "\x00" + e.From.Key + "\x00" + e.Type + "\x00" + e.To.Label + "\x00" + e.To.Key
}

// UpsertNode records n in the pending node map, last-write-wins on
// properties for a repeated (label, key) (spec.md 3.4), without writing
// a frame yet.
func (ix *Ingestor) UpsertNode(ctx context.Context, n ingest.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := nodeDedupKey(n)
	if _, seen := ix.nodes[key]; !seen {
		ix.nodeOrder = append(ix.nodeOrder, key)
	}
	ix.nodes[key] = n
	return nil
}

// UpsertEdge records e in the pending edge map, collapsing repeat calls
// for the same (source, type, target) triple into one edge, without
// writing a frame yet.
func (ix *Ingestor) UpsertEdge(ctx context.Context, e ingest.Edge) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := edgeDedupKey(e)
	if _, seen := ix.edges[key]; !seen {
		ix.edgeOrder = append(ix.edgeOrder, key)
	}
	ix.edges[key] = e
	return nil
}

// FlushNodes writes every pending node record, in first-seen order, and
// clears the pending map.
func (ix *Ingestor) FlushNodes(ctx context.Context) error {
	for _, key := range ix.nodeOrder {
		n := ix.nodes[key]
		if err := ix.w.PutNode(n); err != nil {
			return runerr.SinkError(n.Key, err)
		}
	}
	ix.nodeOrder = ix.nodeOrder[:0]
	ix.nodes = make(map[string]ingest.Node)
	return nil
}

// FlushEdges writes every pending edge record, in first-seen order, and
// clears the pending map.
func (ix *Ingestor) FlushEdges(ctx context.Context) error {
	for _, key := range ix.edgeOrder {
		e := ix.edges[key]
		if err := ix.w.PutEdge(e); err != nil {
			return runerr.SinkError(e.From.Key+"->"+e.To.Key, err)
		}
	}
	ix.edgeOrder = ix.edgeOrder[:0]
	ix.edges = make(map[string]ingest.Edge)
	return nil
}

func (ix *Ingestor) FlushAll(ctx context.Context) error {
	if err := ix.FlushNodes(ctx); err != nil {
		return err
	}
	return ix.FlushEdges(ctx)
}

// Clean is unsupported on a write-once container: there is nothing to
// delete mid-write, so a caller that needs to retry after a partial
// failure should discard the container and start a new Writer instead.
func (ix *Ingestor) Clean(ctx context.Context, project string) error {
	return runerr.InvariantViolation(project, fmt.Errorf("offline index: clean unsupported, discard and re-run instead"))
}

// ListProjects always reports the single active project: a container
// only ever holds one run's output.
func (ix *Ingestor) ListProjects(ctx context.Context) ([]ingest.Project, error) {
	return []ingest.Project{{Name: ix.project}}, nil
}

// DeleteProject is unsupported for the same reason as Clean.
func (ix *Ingestor) DeleteProject(ctx context.Context, name string) error {
	return runerr.InvariantViolation(name, fmt.Errorf("offline index: delete unsupported on a write-once container"))
}

// Close flushes any still-pending node/edge records, then flushes and
// closes the underlying Writer.
func (ix *Ingestor) Close(ctx context.Context) error {
	if err := ix.FlushAll(ctx); err != nil {
		return err
	}
	return ix.w.Close()
}
