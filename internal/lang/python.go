package lang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func init() {
	Register(&LanguageSpec{
		Language:          Python,
		FileExtensions:    []string{".py"},
		ModuleNodeTypes:   []string{"module"},
		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes:    []string{"class_definition"},
		CallNodeTypes:     []string{"call"},
		ImportNodeTypes:   []string{"import_statement", "import_from_statement"},
		PackageIndicators: []string{"__init__.py"},

		Fields: FieldNames{
			Name:       "name",
			Parameters: "parameters",
			Body:       "body",
			Type:       "return_type",
			Superclass: "superclasses",
			Value:      "right",
		},

		Primitives: map[string]bool{
			"int": true, "float": true, "str": true, "bool": true, "bytes": true,
			"None": true, "object": true, "complex": true,
		},
		StdlibWrappers: map[string]string{
			"Path": "pathlib.Path", "datetime": "datetime.datetime", "Decimal": "decimal.Decimal",
		},

		ParameterNodeTypes: []string{"identifier", "typed_parameter", "default_parameter", "typed_default_parameter"},

		ExtractImports:        extractPythonImports,
		ExtractTypeAnnotation: extractPythonTypeAnnotation,
		ExtractLocals:         extractPythonLocals,
	})
}

// extractPythonImports handles both `import a.b.c as d` and
// `from a.b import c, d as e, *`.
func extractPythonImports(node *tree_sitter.Node, src []byte) []ImportBinding {
	switch node.Kind() {
	case "import_statement":
		return extractPlainPythonImport(node, src)
	case "import_from_statement":
		return extractFromPythonImport(node, src)
	default:
		return nil
	}
}

func extractPlainPythonImport(node *tree_sitter.Node, src []byte) []ImportBinding {
	var out []ImportBinding
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "dotted_name":
			path := string(src[child.StartByte():child.EndByte()])
			out = append(out, ImportBinding{LocalName: lastDottedSegment(path), Origin: path})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			path := string(src[nameNode.StartByte():nameNode.EndByte()])
			alias := string(src[aliasNode.StartByte():aliasNode.EndByte()])
			out = append(out, ImportBinding{LocalName: alias, Origin: path})
		}
	}
	return out
}

func extractFromPythonImport(node *tree_sitter.Node, src []byte) []ImportBinding {
	moduleNode := node.ChildByFieldName("module_name")
	if moduleNode == nil {
		return nil
	}
	module := string(src[moduleNode.StartByte():moduleNode.EndByte()])

	var out []ImportBinding
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil || child.StartByte() == moduleNode.StartByte() {
			continue
		}
		switch child.Kind() {
		case "wildcard_import":
			out = append(out, ImportBinding{Origin: module, Wildcard: true})
		case "dotted_name", "identifier":
			name := string(src[child.StartByte():child.EndByte()])
			out = append(out, ImportBinding{LocalName: name, Origin: module, Member: name})
		case "aliased_import":
			nameNode := child.ChildByFieldName("name")
			aliasNode := child.ChildByFieldName("alias")
			if nameNode == nil || aliasNode == nil {
				continue
			}
			member := string(src[nameNode.StartByte():nameNode.EndByte()])
			alias := string(src[aliasNode.StartByte():aliasNode.EndByte()])
			out = append(out, ImportBinding{LocalName: alias, Origin: module, Member: member})
		}
	}
	return out
}

func lastDottedSegment(path string) string {
	parts := strings.Split(path, ".")
	return parts[len(parts)-1]
}

// extractPythonTypeAnnotation strips subscript generics (List[int] -> List)
// so the base name can go through ordinary type-name resolution.
func extractPythonTypeAnnotation(node *tree_sitter.Node, src []byte) string {
	text := string(src[node.StartByte():node.EndByte()])
	if idx := strings.Index(text, "["); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimPrefix(text, "\"")
}

// extractPythonLocals walks a function body for assignments (plain and
// annotated) and for-loop targets. Nested function/lambda bodies are
// their own scope and are skipped.
func extractPythonLocals(bodyNode *tree_sitter.Node, src []byte) []LocalBinding {
	var out []LocalBinding
	walkPythonLocals(bodyNode, src, &out)
	return out
}

func walkPythonLocals(node *tree_sitter.Node, src []byte, out *[]LocalBinding) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "function_definition", "lambda":
		return

	case "assignment":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		typeNode := node.ChildByFieldName("type")
		if left != nil && left.Kind() == "identifier" {
			b := LocalBinding{Name: string(src[left.StartByte():left.EndByte()])}
			if typeNode != nil {
				b.TypeAnnotation = extractPythonTypeAnnotation(typeNode, src)
			}
			if right != nil {
				applyPythonInitializer(&b, right, src)
			}
			*out = append(*out, b)
		}

	case "for_statement":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		iterable := ""
		if right != nil {
			iterable = string(src[right.StartByte():right.EndByte()])
		}
		for _, name := range pythonTargetNames(left, src) {
			*out = append(*out, LocalBinding{Name: name, IsForEachElement: true, IterableName: iterable})
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkPythonLocals(node.Child(i), src, out)
	}
}

func pythonTargetNames(node *tree_sitter.Node, src []byte) []string {
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

// applyPythonInitializer recognizes "Type(...)" constructor calls and
// dotted attribute-access chains ("a.b.c") on an assignment's RHS.
func applyPythonInitializer(b *LocalBinding, expr *tree_sitter.Node, src []byte) {
	switch expr.Kind() {
	case "call":
		fn := expr.ChildByFieldName("function")
		if fn != nil {
			b.ConstructorCallee = string(src[fn.StartByte():fn.EndByte()])
		}
	case "attribute":
		b.FieldAccessChain = strings.Split(string(src[expr.StartByte():expr.EndByte()]), ".")
	}
}
