package lang

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

func init() {
	Register(&LanguageSpec{
		Language:           Java,
		FileExtensions:     []string{".java"},
		ModuleNodeTypes:    []string{"program"},
		FunctionNodeTypes:  []string{"method_declaration", "constructor_declaration"},
		ClassNodeTypes:     []string{"class_declaration", "record_declaration"},
		InterfaceNodeTypes: []string{"interface_declaration", "annotation_type_declaration"},
		EnumNodeTypes:      []string{"enum_declaration"},
		FieldNodeTypes:     []string{"field_declaration"},
		CallNodeTypes:      []string{"method_invocation"},
		ImportNodeTypes:    []string{"import_declaration"},
		PackageIndicators:  []string{"pom.xml", "build.gradle"},

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
			"boolean": true, "byte": true, "char": true, "short": true, "int": true,
			"long": true, "float": true, "double": true, "void": true,
		},
		StdlibWrappers: map[string]string{
			"String": "java.lang.String", "Object": "java.lang.Object", "Integer": "java.lang.Integer",
			"Long": "java.lang.Long", "Double": "java.lang.Double", "Boolean": "java.lang.Boolean",
			"List": "java.util.List", "Map": "java.util.Map", "Set": "java.util.Set",
			"Optional": "java.util.Optional", "Exception": "java.lang.Exception",
		},

		ParameterNodeTypes: []string{"formal_parameter", "spread_parameter"},

		ExtractImports:        extractJavaImports,
		ExtractTypeAnnotation: extractJavaTypeAnnotation,
		ExtractLocals:         extractJavaLocals,
	})
}

// extractJavaImports handles `import a.b.C;`, `import a.b.*;`, and
// `import static a.b.C.method;`, mirroring the ordering
// codebase_rag/parsers/java/type_resolver.py uses to build import maps.
func extractJavaImports(node *tree_sitter.Node, src []byte) []ImportBinding {
	isStatic := false
	var pathText string
	wildcard := false

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "static":
			isStatic = true
		case "scoped_identifier", "identifier":
			pathText = string(src[child.StartByte():child.EndByte()])
		case "asterisk":
			wildcard = true
		}
	}
	if pathText == "" {
		return nil
	}

	if wildcard {
		return []ImportBinding{{Origin: pathText, Wildcard: true, StaticCall: isStatic}}
	}

	parts := strings.Split(pathText, ".")
	simple := parts[len(parts)-1]
	if isStatic {
		// import static a.b.C.method -> origin is the class, member is the method
		if len(parts) < 2 {
			return nil
		}
		owner := strings.Join(parts[:len(parts)-1], ".")
		return []ImportBinding{{LocalName: simple, Origin: owner, Member: simple, StaticCall: true}}
	}
	return []ImportBinding{{LocalName: simple, Origin: pathText}}
}

func extractJavaTypeAnnotation(node *tree_sitter.Node, src []byte) string {
	text := string(src[node.StartByte():node.EndByte()])
	text = strings.TrimSuffix(text, "[]")
	if idx := strings.Index(text, "<"); idx >= 0 {
		text = text[:idx]
	}
	return text
}

// extractJavaLocals walks a method body for local_variable_declaration,
// plain assignment, and enhanced-for (for-each) bindings, grounded on
// original_source's _resolve_java_object_type's variable-map construction
// (spec.md 4.5 steps 2-3, 5-6). Lambda/anonymous-class bodies get their
// own scope and are skipped.
func extractJavaLocals(bodyNode *tree_sitter.Node, src []byte) []LocalBinding {
	var out []LocalBinding
	walkJavaLocals(bodyNode, src, &out)
	return out
}

func walkJavaLocals(node *tree_sitter.Node, src []byte, out *[]LocalBinding) {
	if node == nil {
		return
	}
	switch node.Kind() {
	case "lambda_expression", "class_declaration", "anonymous_class_body":
		return

	case "local_variable_declaration":
		typeNode := node.ChildByFieldName("type")
		var typeText string
		if typeNode != nil {
			typeText = extractJavaTypeAnnotation(typeNode, src)
		}
		for i := uint(0); i < node.ChildCount(); i++ {
			decl := node.Child(i)
			if decl == nil || decl.Kind() != "variable_declarator" {
				continue
			}
			nameNode := decl.ChildByFieldName("name")
			valueNode := decl.ChildByFieldName("value")
			if nameNode == nil {
				continue
			}
			b := LocalBinding{Name: string(src[nameNode.StartByte():nameNode.EndByte()]), TypeAnnotation: typeText}
			if valueNode != nil {
				applyJavaInitializer(&b, valueNode, src)
			}
			*out = append(*out, b)
		}

	case "assignment_expression":
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left != nil && left.Kind() == "identifier" && right != nil {
			b := LocalBinding{Name: string(src[left.StartByte():left.EndByte()])}
			applyJavaInitializer(&b, right, src)
			*out = append(*out, b)
		}

	case "enhanced_for_statement":
		nameNode := node.ChildByFieldName("name")
		typeNode := node.ChildByFieldName("type")
		valueNode := node.ChildByFieldName("value")
		if nameNode != nil {
			b := LocalBinding{
				Name:             string(src[nameNode.StartByte():nameNode.EndByte()]),
				IsForEachElement: true,
			}
			if typeNode != nil {
				b.TypeAnnotation = extractJavaTypeAnnotation(typeNode, src)
			}
			if valueNode != nil {
				b.IterableName = string(src[valueNode.StartByte():valueNode.EndByte()])
			}
			*out = append(*out, b)
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		walkJavaLocals(node.Child(i), src, out)
	}
}

// applyJavaInitializer recognizes "new Type(...)" constructor calls and
// dotted field-access chains ("a.b.c") on a declaration/assignment RHS.
func applyJavaInitializer(b *LocalBinding, expr *tree_sitter.Node, src []byte) {
	switch expr.Kind() {
	case "object_creation_expression":
		typeNode := expr.ChildByFieldName("type")
		if typeNode != nil {
			b.ConstructorCallee = string(src[typeNode.StartByte():typeNode.EndByte()])
		}
	case "method_invocation":
		nameNode := expr.ChildByFieldName("name")
		if nameNode != nil {
			b.ConstructorCallee = string(src[nameNode.StartByte():nameNode.EndByte()])
		}
	case "field_access":
		b.FieldAccessChain = strings.Split(string(src[expr.StartByte():expr.EndByte()]), ".")
	}
}
