package lang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func init() {
	Register(&LanguageSpec{
		Language:           PHP,
		FileExtensions:     []string{".php"},
		ModuleNodeTypes:    []string{"program"},
		FunctionNodeTypes:  []string{"function_definition", "method_declaration"},
		ClassNodeTypes:     []string{"class_declaration", "trait_declaration"},
		InterfaceNodeTypes: []string{"interface_declaration"},
		EnumNodeTypes:      []string{"enum_declaration"},
		CallNodeTypes: []string{
			"member_call_expression",
			"scoped_call_expression",
			"function_call_expression",
			"nullsafe_member_call_expression",
		},
		ImportNodeTypes:   []string{"namespace_use_declaration"},
		PackageIndicators: []string{"composer.json"},

		Fields: FieldNames{
			Name:       "name",
			Parameters: "parameters",
			Body:       "body",
			Type:       "type",
			Value:      "default_value",
		},

		Primitives: map[string]bool{
			"int": true, "float": true, "string": true, "bool": true, "array": true,
			"void": true, "mixed": true, "object": true, "callable": true, "null": true,
		},

		ParameterNodeTypes: []string{"simple_parameter", "variadic_parameter", "property_promotion_parameter"},

		ExtractImports:        extractPHPImports,
		ExtractTypeAnnotation: extractPHPTypeAnnotation,
		ExtractLocals:         extractPHPLocals,
	})
}

// extractPHPImports handles `use App\Foo;`, `use App\Foo as Bar;`, and
// `use App\{Foo, Bar as Baz};`.
func extractPHPImports(node *tree_sitter.Node, src []byte) []ImportBinding {
	var out []ImportBinding
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "namespace_use_clause":
			out = append(out, phpUseClause(child, src, "")...)
		case "namespace_use_group":
			prefixNode := child.ChildByFieldName("prefix")
			prefix := ""
			if prefixNode != nil {
				prefix = string(src[prefixNode.StartByte():prefixNode.EndByte()])
			}
			for j := uint(0); j < child.ChildCount(); j++ {
				clause := child.Child(j)
				if clause == nil || clause.Kind() != "namespace_use_clause" {
					continue
				}
				out = append(out, phpUseClause(clause, src, prefix)...)
			}
		}
	}
	return out
}

func phpUseClause(clause *tree_sitter.Node, src []byte, prefix string) []ImportBinding {
	nameNode := clause.ChildByFieldName("name")
	aliasNode := clause.ChildByFieldName("alias")
	if nameNode == nil {
		return nil
	}
	name := string(src[nameNode.StartByte():nameNode.EndByte()])
	full := name
	if prefix != "" {
		full = strings.TrimSuffix(prefix, "\\") + "\\" + name
	}
	local := name
	if idx := strings.LastIndex(name, "\\"); idx >= 0 {
		local = name[idx+1:]
	}
	if aliasNode != nil {
		local = string(src[aliasNode.StartByte():aliasNode.EndByte()])
	}
	return []ImportBinding{{LocalName: local, Origin: full}}
}

func extractPHPTypeAnnotation(node *tree_sitter.Node, src []byte) string {
	text := string(src[node.StartByte():node.EndByte()])
	text = strings.TrimPrefix(text, "?")
	if idx := strings.Index(text, "|"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimPrefix(text, "\\")
}

// extractPHPLocals walks a method/function body for simple assignment
// ("$x = ...") and foreach loop targets. Nested closures get their own
// scope and are skipped.
func extractPHPLocals(bodyNode *tree_sitter.Node, src []byte) []LocalBinding {
	var out []LocalBinding
	walkPHPLocals(bodyNode, src, &out)
	return out
}

func walkPHPLocals(node *tree_sitter.Node, src []byte, out *[]LocalBinding) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "anonymous_function_creation_expression", "arrow_function", "function_definition", "method_declaration":
		return

	case "assignment_expression":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left != nil && left.Kind() == "variable_name" && right != nil {
			b := LocalBinding{Name: phpVarName(left, src)}
			applyPHPInitializer(&b, right, src)
			*out = append(*out, b)
		}

	case "foreach_statement":
		valueNode := node.ChildByFieldName("value")
		iterNode := node.ChildByFieldName("array") // tree-sitter-php names the iterable "array"
		iterable := ""
		if iterNode != nil {
			iterable = string(src[iterNode.StartByte():iterNode.EndByte()])
		}
		if valueNode != nil && valueNode.Kind() == "variable_name" {
			*out = append(*out, LocalBinding{
				Name:             phpVarName(valueNode, src),
				IsForEachElement: true,
				IterableName:     iterable,
			})
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkPHPLocals(node.Child(i), src, out)
	}
}

func phpVarName(node *tree_sitter.Node, src []byte) string {
	return strings.TrimPrefix(string(src[node.StartByte():node.EndByte()]), "$")
}

// applyPHPInitializer recognizes "new Type(...)" constructor calls and
// dotted "->" member-access chains on an assignment's RHS.
func applyPHPInitializer(b *LocalBinding, expr *tree_sitter.Node, src []byte) {
	switch expr.Kind() {
	case "object_creation_expression":
		classNode := expr.ChildByFieldName("class")
		if classNode != nil {
			b.ConstructorCallee = string(src[classNode.StartByte():classNode.EndByte()])
		}
	case "member_access_expression":
		text := string(src[expr.StartByte():expr.EndByte()])
		b.FieldAccessChain = strings.Split(strings.ReplaceAll(text, "->", "."), ".")
	}
}
