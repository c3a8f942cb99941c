package lang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func init() {
	Register(&LanguageSpec{
		Language:          Go,
		FileExtensions:    []string{".go"},
		ModuleNodeTypes:   []string{"source_file"},
		// method_spec is an interface body's method signature (no body):
		// needed so an interface's method set is registered at all, which
		// Go's structural-satisfaction pass (internal/pipeline/inherits.go)
		// depends on to detect which structs implement which interfaces.
		FunctionNodeTypes: []string{"function_declaration", "method_declaration", "method_spec"},
		ClassNodeTypes:    []string{"type_spec"},
		FieldNodeTypes:    []string{"field_declaration"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import_declaration"},
		PackageIndicators: []string{"go.mod"},

		Fields: FieldNames{
			Name:       "name",
			Parameters: "parameters",
			Body:       "body",
			Type:       "type",
			Receiver:   "receiver",
			Value:      "value",
		},

		Primitives: map[string]bool{
			"bool": true, "string": true, "error": true, "any": true,
			"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
			"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
			"byte": true, "rune": true, "float32": true, "float64": true,
			"complex64": true, "complex128": true,
		},
		StdlibWrappers: map[string]string{
			"Context": "context.Context", "WaitGroup": "sync.WaitGroup", "Mutex": "sync.Mutex",
			"Builder": "strings.Builder", "Buffer": "bytes.Buffer",
		},

		ParameterNodeTypes: []string{"parameter_declaration"},

		ExtractImports:        extractGoImports,
		ExtractTypeAnnotation: extractGoTypeAnnotation,
		ExtractLocals:         extractGoLocals,
	})
}

// extractGoImports walks an import_declaration, handling both the
// single-spec (`import "fmt"`) and grouped (`import (...)`) forms.
func extractGoImports(node *tree_sitter.Node, src []byte) []ImportBinding {
	var out []ImportBinding
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import_spec":
			if b, ok := goImportSpec(child, src); ok {
				out = append(out, b)
			}
		case "import_spec_list":
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec == nil || spec.Kind() != "import_spec" {
					continue
				}
				if b, ok := goImportSpec(spec, src); ok {
					out = append(out, b)
				}
			}
		}
	}
	return out
}

func goImportSpec(spec *tree_sitter.Node, src []byte) (ImportBinding, bool) {
	pathNode := spec.ChildByFieldName("path")
	if pathNode == nil {
		return ImportBinding{}, false
	}
	path := strings.Trim(string(src[pathNode.StartByte():pathNode.EndByte()]), "\"")
	if path == "" {
		return ImportBinding{}, false
	}

	localName := lastPathSegment(path)
	wildcard := false

	if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
		alias := string(src[nameNode.StartByte():nameNode.EndByte()])
		switch alias {
		case "_":
			return ImportBinding{}, false // blank import: no symbol binding
		case ".":
			wildcard = true
		default:
			localName = alias
		}
	}

	return ImportBinding{LocalName: localName, Origin: path, Wildcard: wildcard}, true
}

func lastPathSegment(path string) string {
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// extractGoTypeAnnotation renders a Go type node's source text, stripping
// a single leading pointer/slice marker so callers can see the base name.
func extractGoTypeAnnotation(node *tree_sitter.Node, src []byte) string {
	text := string(src[node.StartByte():node.EndByte()])
	text = strings.TrimPrefix(text, "*")
	text = strings.TrimPrefix(text, "[]")
	return text
}

// extractGoLocals walks a function/method body for short_var_declaration
// (":="), var_declaration, assignment_statement, and range-clause
// bindings. It does not descend into nested func_literal bodies.
func extractGoLocals(bodyNode *tree_sitter.Node, src []byte) []LocalBinding {
	var out []LocalBinding
	walkGoLocals(bodyNode, src, &out)
	return out
}

func walkGoLocals(node *tree_sitter.Node, src []byte, out *[]LocalBinding) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "func_literal":
		return // own scope, handled separately

	case "short_var_declaration":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		names := identifierNames(left, src)
		for i, name := range names {
			b := LocalBinding{Name: name}
			if right != nil {
				expr := nthExpr(right, i)
				applyGoInitializer(&b, expr, src)
			}
			*out = append(*out, b)
		}

	case "var_declaration":
		for i := uint(0); i < node.ChildCount(); i++ {
			spec := node.Child(i)
			if spec == nil || spec.Kind() != "var_spec" {
				continue
			}
			nameNode := spec.ChildByFieldName("name")
			typeNode := spec.ChildByFieldName("type")
			valueNode := spec.ChildByFieldName("value")
			names := identifierNames(nameNode, src)
			for j, name := range names {
				b := LocalBinding{Name: name}
				if typeNode != nil {
					b.TypeAnnotation = extractGoTypeAnnotation(typeNode, src)
				}
				if valueNode != nil {
					applyGoInitializer(&b, nthExpr(valueNode, j), src)
				}
				*out = append(*out, b)
			}
		}

	case "assignment_statement":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		names := identifierNames(left, src)
		for i, name := range names {
			b := LocalBinding{Name: name}
			if right != nil {
				applyGoInitializer(&b, nthExpr(right, i), src)
			}
			*out = append(*out, b)
		}

	case "range_clause":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		names := identifierNames(left, src)
		iterable := ""
		if right != nil {
			iterable = string(src[right.StartByte():right.EndByte()])
		}
		// Range over (k, v): v is the element; if only one name, it's the element too.
		if len(names) > 0 {
			elem := names[len(names)-1]
			*out = append(*out, LocalBinding{Name: elem, IsForEachElement: true, IterableName: iterable})
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkGoLocals(node.Child(i), src, out)
	}
}

// identifierNames extracts top-level identifier names from an
// expression_list / identifier_list node (or a bare identifier).
func identifierNames(node *tree_sitter.Node, src []byte) []string {
	if node == nil {
		return nil
	}
	if node.Kind() == "identifier" {
		return []string{string(src[node.StartByte():node.EndByte()])}
	}
	var out []string
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c != nil && c.Kind() == "identifier" {
			out = append(out, string(src[c.StartByte():c.EndByte()]))
		}
	}
	return out
}

// nthExpr returns the i-th named expression child of an expression_list,
// or the node itself if it only wraps a single expression.
func nthExpr(node *tree_sitter.Node, i int) *tree_sitter.Node {
	if node.Kind() != "expression_list" {
		return node
	}
	idx := 0
	for j := uint(0); j < node.ChildCount(); j++ {
		c := node.Child(j)
		if c == nil || !c.IsNamed() {
			continue
		}
		if idx == i {
			return c
		}
		idx++
	}
	return nil
}

// applyGoInitializer recognizes a constructor-style initializer
// ("Type{...}" composite literal, "&Type{...}", "NewType(...)" call) or a
// chained field-access expression ("a.b.c"), recording whichever applies.
func applyGoInitializer(b *LocalBinding, expr *tree_sitter.Node, src []byte) {
	if expr == nil {
		return
	}
	switch expr.Kind() {
	case "unary_expression":
		// &Type{...}
		operand := expr.ChildByFieldName("operand")
		applyGoInitializer(b, operand, src)
	case "composite_literal":
		typeNode := expr.ChildByFieldName("type")
		if typeNode != nil {
			b.ConstructorCallee = string(src[typeNode.StartByte():typeNode.EndByte()])
		}
	case "call_expression":
		fn := expr.ChildByFieldName("function")
		if fn != nil {
			b.ConstructorCallee = string(src[fn.StartByte():fn.EndByte()])
		}
	case "selector_expression":
		b.FieldAccessChain = strings.Split(string(src[expr.StartByte():expr.EndByte()]), ".")
	}
}
