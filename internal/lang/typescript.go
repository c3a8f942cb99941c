package lang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func init() {
	Register(&LanguageSpec{
		Language:        TypeScript,
		FileExtensions:  []string{".ts"},
		ModuleNodeTypes: []string{"program"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
			"function_expression",
			"arrow_function",
			"method_definition",
			"function_signature",
		},
		ClassNodeTypes:     []string{"class_declaration", "class", "abstract_class_declaration"},
		InterfaceNodeTypes: []string{"interface_declaration"},
		EnumNodeTypes:      []string{"enum_declaration"},
		CallNodeTypes:      []string{"call_expression"},
		ImportNodeTypes:    []string{"import_statement"},

		Fields: FieldNames{
			Name:       "name",
			Parameters: "parameters",
			Body:       "body",
			Type:       "type",
			Superclass: "superclass",
			Interfaces: "interfaces",
			Value:      "value",
		},

		Primitives: map[string]bool{
			"number": true, "string": true, "boolean": true, "undefined": true, "null": true,
			"void": true, "any": true, "unknown": true, "never": true, "object": true, "symbol": true,
		},

		ParameterNodeTypes: []string{"required_parameter", "optional_parameter", "rest_pattern"},

		ExtractImports:        extractESImports, // TS shares ES module import grammar with JS
		ExtractTypeAnnotation: extractTSTypeAnnotation,
		ExtractLocals:         extractESLocals, // TS shares JS's statement grammar for locals
	})
}

// extractTSTypeAnnotation strips the leading ": " a type_annotation field
// carries and any generic parameter list, leaving the base type name.
func extractTSTypeAnnotation(node *tree_sitter.Node, src []byte) string {
	text := string(src[node.StartByte():node.EndByte()])
	text = strings.TrimPrefix(text, ":")
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "[]")
	if idx := strings.Index(text, "<"); idx >= 0 {
		text = text[:idx]
	}
	return text
}
