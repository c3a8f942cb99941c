package lang

import tree_sitter "github.com/tree-sitter/go-tree-sitter"

func init() {
	Register(&LanguageSpec{
		Language:        JavaScript,
		FileExtensions:  []string{".js", ".jsx"},
		ModuleNodeTypes: []string{"program"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"arrow_function",
			"method_definition",
		},
		ClassNodeTypes:  []string{"class_declaration", "class"},
		CallNodeTypes:   []string{"call_expression"},
		ImportNodeTypes: []string{"import_statement"},

		Fields: FieldNames{
			Name:       "name",
			Parameters: "parameters",
			Body:       "body",
			Superclass: "superclass",
			Value:      "value",
		},

		Primitives: map[string]bool{
			"number": true, "string": true, "boolean": true, "undefined": true, "null": true,
			"object": true, "symbol": true, "bigint": true,
		},

		ParameterNodeTypes: []string{"identifier", "assignment_pattern", "rest_pattern", "object_pattern", "array_pattern"},

		ExtractImports:        extractESImports,
		ExtractTypeAnnotation: extractJSTypeAnnotation,
		ExtractLocals:         extractESLocals,
	})
}

// extractESImports handles `import a from "x"`, `import {a, b as c} from "x"`,
// `import * as ns from "x"`, and bare `import "x"`.
func extractESImports(node *tree_sitter.Node, src []byte) []ImportBinding {
	sourceNode := node.ChildByFieldName("source")
	if sourceNode == nil {
		return nil
	}
	origin := trimQuotes(string(src[sourceNode.StartByte():sourceNode.EndByte()]))

	var out []ImportBinding
	clause := findChildKind(node, "import_clause")
	if clause == nil {
		return out // side-effect-only import: no bindings
	}

	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier":
			name := string(src[child.StartByte():child.EndByte()])
			out = append(out, ImportBinding{LocalName: name, Origin: origin, Member: "default"})
		case "namespace_import":
			if idNode := findChildKind(child, "identifier"); idNode != nil {
				name := string(src[idNode.StartByte():idNode.EndByte()])
				out = append(out, ImportBinding{LocalName: name, Origin: origin, Wildcard: true})
			}
		case "named_imports":
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec == nil || spec.Kind() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				aliasNode := spec.ChildByFieldName("alias")
				if nameNode == nil {
					continue
				}
				member := string(src[nameNode.StartByte():nameNode.EndByte()])
				local := member
				if aliasNode != nil {
					local = string(src[aliasNode.StartByte():aliasNode.EndByte()])
				}
				out = append(out, ImportBinding{LocalName: local, Origin: origin, Member: member})
			}
		}
	}
	return out
}

func findChildKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

func extractJSTypeAnnotation(node *tree_sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}

// extractESLocals walks a function body for variable_declarator bindings
// (const/let/var) and for-of/for-in loop targets, shared by JavaScript
// and TypeScript since both use the same statement grammar. Nested
// function/arrow bodies get their own scope and are skipped.
func extractESLocals(bodyNode *tree_sitter.Node, src []byte) []LocalBinding {
	var out []LocalBinding
	walkESLocals(bodyNode, src, &out)
	return out
}

func walkESLocals(node *tree_sitter.Node, src []byte, out *[]LocalBinding) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "function_declaration", "function_expression", "arrow_function", "method_definition", "class_declaration", "class":
		return

	case "variable_declarator":
		nameNode := node.ChildByFieldName("name")
		valueNode := node.ChildByFieldName("value")
		typeNode := node.ChildByFieldName("type")
		if nameNode != nil && nameNode.Kind() == "identifier" {
			b := LocalBinding{Name: string(src[nameNode.StartByte():nameNode.EndByte()])}
			if typeNode != nil {
				b.TypeAnnotation = extractTSTypeAnnotation(typeNode, src)
			}
			if valueNode != nil {
				applyESInitializer(&b, valueNode, src)
			}
			*out = append(*out, b)
		}

	case "for_in_statement":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		iterable := ""
		if right != nil {
			iterable = string(src[right.StartByte():right.EndByte()])
		}
		if left != nil {
			name := string(src[left.StartByte():left.EndByte()])
			*out = append(*out, LocalBinding{Name: name, IsForEachElement: true, IterableName: iterable})
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkESLocals(node.Child(i), src, out)
	}
}

// applyESInitializer recognizes "new Type(...)" constructor calls and
// dotted member-access chains ("a.b.c") on a declarator's initializer.
func applyESInitializer(b *LocalBinding, expr *tree_sitter.Node, src []byte) {
	switch expr.Kind() {
	case "new_expression":
		ctor := expr.ChildByFieldName("constructor")
		if ctor != nil {
			b.ConstructorCallee = string(src[ctor.StartByte():ctor.EndByte()])
		}
	case "call_expression":
		fn := expr.ChildByFieldName("function")
		if fn != nil {
			b.ConstructorCallee = string(src[fn.StartByte():fn.EndByte()])
		}
	case "member_expression":
		split := string(src[expr.StartByte():expr.EndByte()])
		b.FieldAccessChain = splitDots(split)
	}
}

func splitDots(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
