package lang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func init() {
	Register(&LanguageSpec{
		Language:           Rust,
		FileExtensions:     []string{".rs"},
		ModuleNodeTypes:    []string{"source_file", "mod_item"},
		FunctionNodeTypes:  []string{"function_item"},
		ClassNodeTypes:     []string{"struct_item", "enum_item", "impl_item"},
		InterfaceNodeTypes: []string{"trait_item"},
		CallNodeTypes:      []string{"call_expression"},
		ImportNodeTypes:    []string{"use_declaration"},
		PackageIndicators:  []string{"Cargo.toml"},

		Fields: FieldNames{
			Name:       "name",
			Parameters: "parameters",
			Body:       "body",
			Type:       "type",
			Value:      "value",
		},

		Primitives: map[string]bool{
			"bool": true, "char": true, "str": true, "String": true,
			"i8": true, "i16": true, "i32": true, "i64": true, "i128": true, "isize": true,
			"u8": true, "u16": true, "u32": true, "u64": true, "u128": true, "usize": true,
			"f32": true, "f64": true, "()": true,
		},

		ParameterNodeTypes: []string{"parameter", "self_parameter"},

		ExtractImports:        extractRustImports,
		ExtractTypeAnnotation: extractRustTypeAnnotation,
		ExtractLocals:         extractRustLocals,
	})
}

// extractRustImports flattens `use a::b::{c, d as e};` and `use a::b::*;`
// into individual bindings; nested use_list/scoped_use_list grammar is
// walked recursively, carrying the path prefix down.
func extractRustImports(node *tree_sitter.Node, src []byte) []ImportBinding {
	var out []ImportBinding
	body := node
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "use_clause" || child.Kind() == "scoped_identifier" || child.Kind() == "scoped_use_list" || child.Kind() == "use_wildcard" || child.Kind() == "use_as_clause" || child.Kind() == "identifier" {
			out = append(out, flattenRustUse(child, src, "")...)
		}
	}
	if len(out) == 0 {
		out = flattenRustUse(node, src, "")
	}
	return out
}

func flattenRustUse(node *tree_sitter.Node, src []byte, prefix string) []ImportBinding {
	switch node.Kind() {
	case "use_as_clause":
		pathNode := node.ChildByFieldName("path")
		aliasNode := node.ChildByFieldName("alias")
		if pathNode == nil || aliasNode == nil {
			return nil
		}
		path := joinRustPath(prefix, string(src[pathNode.StartByte():pathNode.EndByte()]))
		alias := string(src[aliasNode.StartByte():aliasNode.EndByte()])
		return []ImportBinding{{LocalName: alias, Origin: path}}
	case "use_wildcard":
		pathNode := node.Child(0)
		path := prefix
		if pathNode != nil {
			path = joinRustPath(prefix, strings.TrimSuffix(string(src[pathNode.StartByte():pathNode.EndByte()]), "::"))
		}
		return []ImportBinding{{Origin: path, Wildcard: true}}
	case "scoped_use_list":
		pathNode := node.ChildByFieldName("path")
		listNode := node.ChildByFieldName("list")
		newPrefix := prefix
		if pathNode != nil {
			newPrefix = joinRustPath(prefix, string(src[pathNode.StartByte():pathNode.EndByte()]))
		}
		if listNode == nil {
			return nil
		}
		var out []ImportBinding
		for i := uint(0); i < listNode.ChildCount(); i++ {
			c := listNode.Child(i)
			if c == nil {
				continue
			}
			out = append(out, flattenRustUse(c, src, newPrefix)...)
		}
		return out
	case "scoped_identifier", "identifier":
		path := joinRustPath(prefix, string(src[node.StartByte():node.EndByte()]))
		parts := strings.Split(path, "::")
		simple := parts[len(parts)-1]
		return []ImportBinding{{LocalName: simple, Origin: path}}
	default:
		return nil
	}
}

func joinRustPath(prefix, seg string) string {
	if prefix == "" {
		return seg
	}
	return prefix + "::" + seg
}

func extractRustTypeAnnotation(node *tree_sitter.Node, src []byte) string {
	text := string(src[node.StartByte():node.EndByte()])
	text = strings.TrimPrefix(text, "&")
	text = strings.TrimPrefix(text, "mut ")
	if idx := strings.Index(text, "<"); idx >= 0 {
		text = text[:idx]
	}
	return text
}

// extractRustLocals walks a function body for `let` bindings and `for`
// loop patterns. Nested closures/fn items get their own scope and are
// skipped.
func extractRustLocals(bodyNode *tree_sitter.Node, src []byte) []LocalBinding {
	var out []LocalBinding
	walkRustLocals(bodyNode, src, &out)
	return out
}

func walkRustLocals(node *tree_sitter.Node, src []byte, out *[]LocalBinding) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "function_item", "closure_expression":
		return

	case "let_declaration":
		patternNode := node.ChildByFieldName("pattern")
		typeNode := node.ChildByFieldName("type")
		valueNode := node.ChildByFieldName("value")
		if patternNode != nil && patternNode.Kind() == "identifier" {
			b := LocalBinding{Name: string(src[patternNode.StartByte():patternNode.EndByte()])}
			if typeNode != nil {
				b.TypeAnnotation = extractRustTypeAnnotation(typeNode, src)
			}
			if valueNode != nil {
				applyRustInitializer(&b, valueNode, src)
			}
			*out = append(*out, b)
		}

	case "for_expression":
		patternNode := node.ChildByFieldName("pattern")
		valueNode := node.ChildByFieldName("value")
		iterable := ""
		if valueNode != nil {
			iterable = string(src[valueNode.StartByte():valueNode.EndByte()])
		}
		if patternNode != nil && patternNode.Kind() == "identifier" {
			*out = append(*out, LocalBinding{
				Name:             string(src[patternNode.StartByte():patternNode.EndByte()]),
				IsForEachElement: true,
				IterableName:     iterable,
			})
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkRustLocals(node.Child(i), src, out)
	}
}

// applyRustInitializer recognizes "Type::new(...)" / "Type { .. }"
// constructor forms and dotted field-access chains on a let binding's RHS.
func applyRustInitializer(b *LocalBinding, expr *tree_sitter.Node, src []byte) {
	switch expr.Kind() {
	case "call_expression":
		fn := expr.ChildByFieldName("function")
		if fn != nil {
			b.ConstructorCallee = string(src[fn.StartByte():fn.EndByte()])
		}
	case "struct_expression":
		nameNode := expr.ChildByFieldName("name")
		if nameNode != nil {
			b.ConstructorCallee = string(src[nameNode.StartByte():nameNode.EndByte()])
		}
	case "field_expression":
		b.FieldAccessChain = strings.Split(string(src[expr.StartByte():expr.EndByte()]), ".")
	}
}
