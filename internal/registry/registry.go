// Package registry implements the symbol registry (spec.md 4.3): the
// central QN -> entity-kind map plus the secondary indexes (prefix,
// simple-name, inheritance, module-file) the type-inference engine
// depends on. All indexes are populated during the structural and
// inheritance passes and are read-only during the reference pass,
// matching the single-writer/many-readers model in spec.md 5.
package registry

import (
	"sort"
	"strings"
	"sync"
)

// Kind is the entity kind stored for a QN.
type Kind string

const (
	KindClass     Kind = "Class"
	KindInterface Kind = "Interface"
	KindEnum      Kind = "Enum"
	KindFunction  Kind = "Function"
	KindMethod    Kind = "Method"
	KindModule    Kind = "Module"
	KindPackage   Kind = "Package"
)

// IsClassLike reports whether a Kind can appear on the left of INHERITS /
// IMPLEMENTS and be a method-lookup target.
func (k Kind) IsClassLike() bool {
	return k == KindClass || k == KindInterface || k == KindEnum
}

// entry is what the registry stores per QN, in insertion order (the
// insertionIdx field backs 4.5.4's stable final tiebreaker).
type entry struct {
	kind         Kind
	insertionIdx int
}

// Registry is the central symbol table. Every method takes the registry's
// lock, so concurrent use is safe; writes are expected to happen single-threaded
// during the structural/inheritance passes per spec.md 5.
type Registry struct {
	mu sync.RWMutex

	exact  map[string]entry   // QN -> entry
	byName map[string][]string // simple name -> QNs, insertion order

	inheritance map[string][]string // class QN -> ordered parent QNs
	moduleFile  map[string]string   // module QN -> file path

	// prefixChildren records every QN under each of its dotted prefixes so
	// PrefixLookup can enumerate "all entries under QN" in O(k) where k is
	// the result count, per spec.md 4.3's trie requirement, without
	// building a full character-level trie.
	prefixChildren map[string][]string // QN prefix -> every QN at any depth below it

	nextIdx int
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		exact:          make(map[string]entry),
		byName:         make(map[string][]string),
		inheritance:    make(map[string][]string),
		moduleFile:     make(map[string]string),
		prefixChildren: make(map[string][]string),
	}
}

// Register records a QN's kind. Re-registering the same QN is a no-op
// (first registration wins the insertion-order tiebreak), matching
// "node property updates follow last-write-wins" for properties while
// keeping registry identity/order stable (spec.md 3.4 concerns node
// properties in the sink, not registry bookkeeping).
func (r *Registry) Register(qn string, kind Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.exact[qn]; exists {
		return
	}
	r.exact[qn] = entry{kind: kind, insertionIdx: r.nextIdx}
	r.nextIdx++

	simple := SimpleName(qn)
	r.byName[simple] = append(r.byName[simple], qn)

	for _, prefix := range dottedPrefixes(qn) {
		r.prefixChildren[prefix] = append(r.prefixChildren[prefix], qn)
	}
}

// RegisterModuleFile records the file path backing a module QN.
func (r *Registry) RegisterModuleFile(moduleQN, filePath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moduleFile[moduleQN] = filePath
}

// ModuleFile returns the file path for a module QN, if known.
func (r *Registry) ModuleFile(moduleQN string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.moduleFile[moduleQN]
	return p, ok
}

// SetParents records a class/interface QN's ordered parent list (first
// entry is the primary superclass for single-inheritance languages).
func (r *Registry) SetParents(classQN string, parents []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inheritance[classQN] = append([]string(nil), parents...)
}

// Parents returns a class QN's ordered parent list.
func (r *Registry) Parents(classQN string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.inheritance[classQN]...)
}

// Kind returns the registered kind for a QN.
func (r *Registry) Kind(qn string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.exact[qn]
	return e.kind, ok
}

// Exists reports whether qn is registered, with any kind.
func (r *Registry) Exists(qn string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.exact[qn]
	return ok
}

// InsertionIndex returns the stable registration order of qn, used as the
// final tiebreaker in cross-module candidate ranking (spec.md 4.5.4).
func (r *Registry) InsertionIndex(qn string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exact[qn].insertionIdx
}

// ByName returns all QNs registered under a simple name, in insertion
// order. Used to short-circuit searches when syntax gives no receiver
// type (spec.md 4.3's simple-name index).
func (r *Registry) ByName(simple string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.byName[simple]))
	copy(out, r.byName[simple])
	return out
}

// PrefixLookup yields every registered QN under prefix (i.e. prefix
// itself plus one more dotted segment, recursively) — the hot path for
// method resolution against a resolved class QN (spec.md 4.3, 4.5.3).
func (r *Registry) PrefixLookup(prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	children := r.prefixChildren[prefix]
	out := make([]string, len(children))
	copy(out, children)
	return out
}

// MethodsOf returns the QNs directly under classQN whose kind is Method,
// sorted by insertion order, used by method lookup (spec.md 4.5.3 step 1).
func (r *Registry) MethodsOf(classQN string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, qn := range r.prefixChildren[classQN] {
		if r.exact[qn].kind != KindMethod {
			continue
		}
		rest := qn[len(classQN)+1:]
		if i := strings.IndexByte(rest, '('); i >= 0 {
			rest = rest[:i]
		}
		if !strings.Contains(rest, ".") {
			out = append(out, qn)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.exact[out[i]].insertionIdx < r.exact[out[j]].insertionIdx
	})
	return out
}

// CandidateModules returns every module QN that declares a class-like
// entity with the given simple name, used for cross-module candidate
// ranking (spec.md 4.5.4) when a type name can't be bound any other way.
// Grounded on original_source's _build_fqn_lookup_map: walk every known
// QN's class-like entries and record the module prefix (QN minus its
// last dotted segment) as a candidate source of that simple name.
func (r *Registry) CandidateModules(simpleName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]bool{}
	var modules []string
	for _, qn := range r.byName[simpleName] {
		if !r.exact[qn].kind.IsClassLike() {
			continue
		}
		mod := ModuleOf(qn)
		if !seen[mod] {
			seen[mod] = true
			modules = append(modules, mod)
		}
	}
	return modules
}

// Size returns the number of registered QNs.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exact)
}

// SimpleName extracts the last dot-separated segment of a QN.
func SimpleName(qn string) string {
	if idx := strings.LastIndex(qn, "."); idx >= 0 {
		return qn[idx+1:]
	}
	return qn
}

// ModuleOf returns the QN with its last dotted segment removed — the
// enclosing module/package QN for a definition.
func ModuleOf(qn string) string {
	if idx := strings.LastIndex(qn, "."); idx >= 0 {
		return qn[:idx]
	}
	return qn
}

// dottedPrefixes returns every strict prefix of qn at a dot boundary,
// e.g. "a.b.c.D" -> ["a", "a.b", "a.b.c"]. Used to populate the
// prefix-children index at registration time.
func dottedPrefixes(qn string) []string {
	parts := strings.Split(qn, ".")
	if len(parts) <= 1 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	acc := parts[0]
	for i := 1; i < len(parts); i++ {
		out = append(out, acc)
		acc = acc + "." + parts[i]
	}
	return out
}

// Depth returns the number of dotted segments in a QN, used by
// cross-module distance ranking (spec.md 4.5.4).
func Depth(qn string) int {
	if qn == "" {
		return 0
	}
	return len(strings.Split(qn, "."))
}

// CommonPrefixLen returns the number of leading dot-segments two QNs
// share.
func CommonPrefixLen(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	count := 0
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if aParts[i] != bParts[i] {
			break
		}
		count++
	}
	return count
}

// ImportDistance implements spec.md 4.5.4's distance metric:
// max(depth(a), depth(b)) - common_prefix_length.
func ImportDistance(a, b string) int {
	da, db := Depth(a), Depth(b)
	max := da
	if db > max {
		max = db
	}
	return max - CommonPrefixLen(a, b)
}
