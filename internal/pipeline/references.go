package pipeline

import (
	"context"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/parser"
	"github.com/cgraph/cgraph/internal/registry"
	"github.com/cgraph/cgraph/internal/runerr"
	"github.com/cgraph/cgraph/internal/typeinfer"
)

// passReferences walks every registered function/method body collected
// during the structural pass, resolving each call expression to a QN via
// the type-inference engine and emitting CALLS edges (spec.md 4.7).
// Unresolvable calls are recorded as Resolution-kind errors and dropped
// rather than emitted, per spec.md 3.3's "CALLS must resolve or be
// dropped" invariant.
func (p *Pipeline) passReferences(ctx context.Context) {
	classFields := p.buildClassFieldMaps()

	for _, fi := range p.funcInfos {
		imports := p.moduleImports[fi.ModuleQN]
		fields := classFields[fi.SelfQN]
		superQN := ""
		if fi.SelfQN != "" {
			if parents := p.reg.Parents(fi.SelfQN); len(parents) > 0 {
				superQN = parents[0]
			}
		}

		var locals []lang.LocalBinding
		if fi.Spec.ExtractLocals != nil {
			locals = fi.Spec.ExtractLocals(fi.Body, fi.Source)
		}
		varTypes := p.typeEngine.BuildVariableTypeMap(fi.ModuleQN, fi.Spec, fi.Params, locals, fields, imports)

		calls := collectCallExprs(fi.Body, fi.Source, fi.Spec)
		for _, c := range calls {
			targetQN, ok := p.typeEngine.ResolveCall(c.Receiver, c.MethodName, fi.SelfQN, superQN, fi.ModuleQN, fi.Spec, varTypes, fields, imports)
			if !ok {
				// Receiver-based resolution failed (or there was no
				// receiver): resolve the callee name itself as a type name
				// and accept it only if it names a Function or Method.
				if qn, ok2 := p.typeEngine.ResolveTypeName(c.MethodName, fi.ModuleQN, fi.Spec, imports); ok2 && isCallable(p.reg, qn) {
					targetQN, ok = qn, true
				}
			}
			if !ok {
				p.recordErr(runerr.ResolutionFailure(fi.QN, errUnresolvedCall(c.MethodName)))
				continue
			}
			targetLabel := "Function"
			if k, kok := p.reg.Kind(targetQN); kok {
				targetLabel = string(k)
			}
			p.upsertEdge(ctx, callerLabel(p.reg, fi.QN), fi.QN, "CALLS", targetLabel, targetQN, map[string]any{"line": c.Line})
		}
	}
}

func isCallable(reg *registry.Registry, qn string) bool {
	k, ok := reg.Kind(qn)
	return ok && (k == registry.KindFunction || k == registry.KindMethod)
}

func callerLabel(reg *registry.Registry, qn string) string {
	k, ok := reg.Kind(qn)
	if !ok {
		return "Function"
	}
	return string(k)
}

// buildClassFieldMaps returns a classQN -> fieldName -> typeText map with
// one empty entry per registered class. Field declarations are not
// scanned, so a class's fields add nothing to its methods' variable type
// maps.
func (p *Pipeline) buildClassFieldMaps() map[string]typeinfer.ClassFields {
	out := make(map[string]typeinfer.ClassFields)
	seen := map[string]bool{}
	for _, ci := range p.classInfos {
		if seen[ci.QN] {
			continue
		}
		seen[ci.QN] = true
		out[ci.QN] = typeinfer.ClassFields{}
	}
	return out
}

type callExpr struct {
	Receiver   string
	MethodName string
	Line       uint
}

// collectCallExprs finds every call_expression-like node in body and
// splits its callee into a receiver-expression and method/function name,
// skipping into but not across nested function literals (their calls are
// walked separately when that literal is itself registered as a
// funcInfo; free-floating closures inline here since no separate
// funcInfo exists for them, matching the teacher's flat resolve.go
// treatment of inline callbacks).
func collectCallExprs(body *tree_sitter.Node, src []byte, spec *lang.LanguageSpec) []callExpr {
	var out []callExpr
	parser.Walk(body, func(node *tree_sitter.Node) bool {
		if !containsString(spec.CallNodeTypes, node.Kind()) {
			return true
		}
		var recv, method string
		if nameNode := node.ChildByFieldName("name"); nameNode != nil {
			// Java method_invocation / PHP member and scoped calls carry
			// the method name and its object/scope as separate fields.
			method = parser.NodeText(nameNode, src)
			if obj := node.ChildByFieldName("object"); obj != nil {
				recv = parser.NodeText(obj, src)
			} else if scope := node.ChildByFieldName("scope"); scope != nil {
				recv = parser.NodeText(scope, src)
			}
		} else {
			callee := firstChild(node)
			if callee == nil {
				return true
			}
			recv, method = splitCallee(parser.NodeText(callee, src))
		}
		if method == "" {
			return true
		}
		out = append(out, callExpr{Receiver: recv, MethodName: method, Line: node.StartPosition().Row + 1})
		return true
	})
	return out
}

func firstChild(node *tree_sitter.Node) *tree_sitter.Node {
	if node.ChildCount() == 0 {
		return nil
	}
	return node.Child(0)
}

// splitCallee splits a callee expression's text on its last '.' (or Rust
// "::") into a receiver part and a trailing method/function name.
func splitCallee(text string) (receiver, method string) {
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '.' {
			return text[:i], text[i+1:]
		}
	}
	if idx := lastIndexRust(text); idx >= 0 {
		return text[:idx], text[idx+2:]
	}
	return "", text
}

func lastIndexRust(text string) int {
	for i := len(text) - 2; i >= 0; i-- {
		if text[i] == ':' && text[i+1] == ':' {
			return i
		}
	}
	return -1
}

func errUnresolvedCall(name string) error {
	return &unresolvedCallError{name: name}
}

type unresolvedCallError struct{ name string }

func (e *unresolvedCallError) Error() string { return "unresolved call: " + e.name }
