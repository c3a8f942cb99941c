// Package typeinfer implements the type-inference engine (spec.md 4.5):
// building a per-function variable type map, resolving a textual type or
// receiver expression to a registry QN, looking up a method on a resolved
// class (walking its inheritance/interface chain), and ranking cross-module
// candidates when nothing else disambiguates a name. Grounded on the
// composite-literal/constructor-call mechanics of internal/pipeline's
// Go/Python type inference and on original_source's richer Java resolver
// (this/super-qualified binding, BFS method lookup, recursion guard).
package typeinfer

import (
	"strings"
	"sync"

	"github.com/cgraph/cgraph/internal/importresolve"
	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/registry"
)

// maxResolveDepth bounds the recursive chained-field-access and BFS
// method-lookup walks so a malformed or adversarial cycle in the source
// (or a registry inconsistency) can't recurse unboundedly (spec.md 4.5.5).
const maxResolveDepth = 32

// ClassFields supplies a class's own field name -> declared type text,
// consulted when resolving "this.field" / "self.field" receivers. The
// pipeline passes one per class, and each is empty: field declarations
// are not scanned.
type ClassFields map[string]string

// VariableTypeMap is one function/method's local name -> resolved class QN
// table (spec.md 4.5 steps 1-6). Later bindings overwrite earlier ones for
// the same name, matching normal shadowing/reassignment semantics.
type VariableTypeMap map[string]string

// Engine resolves type names, receivers, and method calls against a
// symbol registry and the import aliases gathered per module. One Engine
// serves the whole reference pass, which walks functions one at a time;
// its cache uses its own lock.
type Engine struct {
	reg *registry.Registry

	cacheMu sync.RWMutex
	cache   map[string]resolveResult
}

type resolveResult struct {
	qn    string
	ok    bool
	ambig bool
}

// New creates an Engine bound to a registry. The registry must be frozen
// (no further Register calls) before concurrent Resolve use begins.
func New(reg *registry.Registry) *Engine {
	return &Engine{reg: reg, cache: make(map[string]resolveResult)}
}

// BuildVariableTypeMap combines a function's parameter bindings, local
// bindings (as extracted by the language's ExtractLocals hook), and the
// enclosing class's own fields into one variable type map, resolving each
// binding's declared/inferred type against the module's import aliases
// and the registry (spec.md 4.5 steps 1-6).
func (e *Engine) BuildVariableTypeMap(
	moduleQN string,
	spec *lang.LanguageSpec,
	params []lang.LocalBinding,
	locals []lang.LocalBinding,
	fields ClassFields,
	imports importresolve.Map,
) VariableTypeMap {
	out := make(VariableTypeMap)

	for name, typeText := range fields {
		if qn, ok := e.ResolveTypeName(typeText, moduleQN, spec, imports); ok {
			out[name] = qn
		}
	}

	apply := func(b lang.LocalBinding) {
		if b.Name == "" {
			return
		}
		if qn, ok := e.bindingType(b, moduleQN, spec, imports, out); ok {
			out[b.Name] = qn
		}
	}
	for _, p := range params {
		apply(p)
	}
	for _, l := range locals {
		apply(l)
	}

	return out
}

// bindingType resolves one LocalBinding's effective type: an explicit
// type annotation wins; otherwise a constructor-call callee; otherwise a
// chained field-access expression resolved recursively; otherwise (for a
// for-each element) the iterable's own element type, when already known.
func (e *Engine) bindingType(b lang.LocalBinding, moduleQN string, spec *lang.LanguageSpec, imports importresolve.Map, soFar VariableTypeMap) (string, bool) {
	if b.TypeAnnotation != "" {
		return e.ResolveTypeName(b.TypeAnnotation, moduleQN, spec, imports)
	}
	if b.ConstructorCallee != "" {
		return e.ResolveTypeName(b.ConstructorCallee, moduleQN, spec, imports)
	}
	if len(b.FieldAccessChain) > 0 {
		return e.resolveChain(b.FieldAccessChain, moduleQN, spec, imports, soFar, 0)
	}
	if b.IsForEachElement && b.IterableName != "" {
		if iterQN, ok := soFar[b.IterableName]; ok {
			return iterQN, true // best-effort: element type assumed same as container's (generics not modeled)
		}
	}
	return "", false
}

// resolveChain walks a dotted access chain ("a.b.c") left to right,
// resolving the head against the variable map/imports/registry and then
// each subsequent segment as a field/member on the previous step's class,
// per spec.md 4.5.2's chained-expression rule.
func (e *Engine) resolveChain(segs []string, moduleQN string, spec *lang.LanguageSpec, imports importresolve.Map, vars VariableTypeMap, depth int) (string, bool) {
	if len(segs) == 0 || depth >= maxResolveDepth {
		return "", false
	}
	head := segs[0]
	var curQN string
	var ok bool
	if qn, known := vars[head]; known {
		curQN, ok = qn, true
	} else {
		curQN, ok = e.ResolveTypeName(head, moduleQN, spec, imports)
	}
	if !ok {
		return "", false
	}
	for _, seg := range segs[1:] {
		member := curQN + "." + seg
		if e.reg.Exists(member) {
			curQN = member
			continue
		}
		return "", false
	}
	return curQN, true
}

// ResolveTypeName implements spec.md 4.5.1: a primitive resolves to
// itself; a known stdlib wrapper resolves to its canonical namespaced
// name; otherwise the import map is consulted for the last segment, then
// a qualified name's qualifier is tried as an internal import alias, then
// same-package and same-module registry lookups, then cross-module
// candidate ranking; failing all of these the name is returned with ok
// false. A qualified name is not accepted as already resolved, and
// array/generic wrapping is not stripped.
func (e *Engine) ResolveTypeName(raw string, moduleQN string, spec *lang.LanguageSpec, imports importresolve.Map) (string, bool) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", false
	}

	if spec != nil {
		if spec.Primitives[name] {
			return name, true
		}
		if canonical, ok := spec.StdlibWrappers[name]; ok {
			return canonical, true
		}
	}

	normalized := strings.ReplaceAll(strings.ReplaceAll(name, "::", "."), "\\", ".")
	simple := registry.SimpleName(normalized)

	if aliases, ok := imports[simple]; ok && len(aliases) > 0 {
		return aliases[0].TargetQN, true
	}

	// A qualified reference ("pkg.NewWidget") names a package/module alias
	// before its trailing member rather than a class simple name outright
	// (the common shape for a constructor call into another package, e.g.
	// Go's pkg.NewWidget()); try the qualifier against the import map
	// before falling through to the unqualified lookups below, which would
	// otherwise discard the qualifier entirely.
	if idx := strings.IndexByte(normalized, '.'); idx > 0 {
		qualifier, member := normalized[:idx], normalized[idx+1:]
		if aliases, ok := imports[qualifier]; ok && len(aliases) > 0 && !aliases[0].IsExternal {
			if qn := aliases[0].TargetQN + "." + member; e.reg.Exists(qn) {
				return qn, true
			}
		}
	}

	samePackage := registry.ModuleOf(moduleQN) + "." + simple
	if e.reg.Exists(samePackage) {
		return samePackage, true
	}
	if e.reg.Exists(moduleQN + "." + simple) {
		return moduleQN + "." + simple, true
	}

	if candidates := e.reg.CandidateModules(simple); len(candidates) > 0 {
		return e.rankCandidates(candidates, simple, moduleQN)
	}

	return name, false
}

// ResolveReceiver implements spec.md 4.5.2: resolve the object expression
// of a method call (the part before the final ".method(...)") to a class
// QN, trying this/self, super, a known local variable, a class field, an
// import alias, a same-package class, and finally a chained expression,
// in that priority order.
func (e *Engine) ResolveReceiver(
	expr string,
	selfQN string,
	superQN string,
	moduleQN string,
	spec *lang.LanguageSpec,
	vars VariableTypeMap,
	fields ClassFields,
	imports importresolve.Map,
) (string, bool) {
	expr = strings.TrimSpace(expr)
	switch expr {
	case "this", "self":
		if selfQN != "" {
			return selfQN, true
		}
	case "super", "parent", "parent::":
		if superQN != "" {
			return superQN, true
		}
	}

	if qn, ok := vars[expr]; ok {
		return qn, true
	}

	if fieldType, ok := fields[expr]; ok {
		return e.ResolveTypeName(fieldType, moduleQN, spec, imports)
	}

	if strings.Contains(expr, ".") {
		return e.resolveChain(strings.Split(expr, "."), moduleQN, spec, imports, vars, 0)
	}

	return e.ResolveTypeName(expr, moduleQN, spec, imports)
}

// LookupMethod implements spec.md 4.5.3: search classQN's own methods
// first (registry prefix scan, matching either the exact simple name or a
// name beginning with methodName followed by "(" for languages whose
// mangled method QNs carry parameter info), then breadth-first over the
// registered parent list (superclasses and implemented interfaces in the
// order recorded), with a visited set to guard cycles and a depth ceiling
// (spec.md 4.5.5).
func (e *Engine) LookupMethod(classQN, methodName string) (string, bool) {
	visited := map[string]bool{}
	queue := []string{classQN}
	depth := 0

	for len(queue) > 0 && depth < maxResolveDepth {
		var next []string
		for _, cur := range queue {
			if visited[cur] {
				continue
			}
			visited[cur] = true

			for _, m := range e.reg.MethodsOf(cur) {
				tail := registry.SimpleName(m)
				if tail == methodName || strings.HasPrefix(tail, methodName+"(") {
					return m, true
				}
			}
			next = append(next, e.reg.Parents(cur)...)
		}
		queue = next
		depth++
	}
	return "", false
}

// ResolveCall is the top-level entry point the reference pass uses: given
// a receiver expression and a method name, resolve the receiver then look
// up the method, memoizing on (moduleQN, expr, methodName). There is no
// in-progress set; recursion is bounded only by the depth ceiling and
// LookupMethod's visited set (spec.md 4.5.5).
func (e *Engine) ResolveCall(
	expr, methodName, selfQN, superQN, moduleQN string,
	spec *lang.LanguageSpec,
	vars VariableTypeMap,
	fields ClassFields,
	imports importresolve.Map,
) (string, bool) {
	key := moduleQN + "#" + expr + "#" + methodName

	e.cacheMu.RLock()
	if r, ok := e.cache[key]; ok {
		e.cacheMu.RUnlock()
		return r.qn, r.ok
	}
	e.cacheMu.RUnlock()

	classQN, ok := e.ResolveReceiver(expr, selfQN, superQN, moduleQN, spec, vars, fields, imports)
	var qn string
	if ok {
		qn, ok = e.LookupMethod(classQN, methodName)
	}

	e.cacheMu.Lock()
	e.cache[key] = resolveResult{qn: qn, ok: ok}
	e.cacheMu.Unlock()

	return qn, ok
}

// rankCandidates applies spec.md 4.5.4's cross-module disambiguation: the
// candidate with the smallest import distance from moduleQN wins; ties
// break on registration order (earliest wins), matching
// resolver.go's bestByImportDistance.
func (e *Engine) rankCandidates(moduleCandidates []string, simpleName, moduleQN string) (string, bool) {
	var best string
	bestDist := -1
	bestIdx := -1

	for _, mod := range moduleCandidates {
		qn := mod + "." + simpleName
		if !e.reg.Exists(qn) {
			continue
		}
		dist := registry.ImportDistance(moduleQN, mod)
		idx := e.reg.InsertionIndex(qn)
		if bestDist == -1 || dist < bestDist || (dist == bestDist && idx < bestIdx) {
			best, bestDist, bestIdx = qn, dist, idx
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}
