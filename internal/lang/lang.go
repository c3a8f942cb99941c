// Package lang holds the per-language adapter tables the rest of the
// pipeline dispatches through. Each supported language registers exactly
// one *LanguageSpec at init time. Most language-specific behaviour is
// reached through these tables; a few places (import origin normalization
// in internal/importresolve, Go type-spec handling in the structural pass)
// still test the language directly.
package lang

import tree_sitter "github.com/tree-sitter/go-tree-sitter"

// Language identifies one of the supported source languages.
type Language string

const (
	Go         Language = "go"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Java       Language = "java"
	Rust       Language = "rust"
	PHP        Language = "php"
)

// AllLanguages returns every supported language, in a fixed order.
func AllLanguages() []Language {
	return []Language{Go, Python, JavaScript, TypeScript, Java, Rust, PHP}
}

// ImportBinding is one local-name -> origin-path entry produced by a
// language's import extractor, prior to QN resolution. Origin is the
// textual module/package path exactly as it appears in source; the
// import processor (internal/importresolve) turns it into a QN.
type ImportBinding struct {
	LocalName  string // name visible in the importing module's scope
	Origin     string // dotted/slash path or package name as written
	Member     string // for "from X import Y": Y; empty for plain module imports
	Wildcard   bool   // local-name-less "import *" / "from X import *"
	StaticCall bool   // Java "import static": origin.Member is a method, not a type
}

// FieldNames are the Tree-sitter field names used to navigate a
// definition node for this language. Not every language populates every
// field; zero value means "not applicable".
type FieldNames struct {
	Name       string
	Parameters string
	Body       string
	Type       string // declared type annotation field (param, var, return)
	Superclass string // field holding the base-class/extends clause
	Interfaces string // field holding the implements/interfaces clause
	Receiver   string // Go-style method receiver field
	Value      string // initializer field in declarations/assignments
}

// LanguageSpec is the single adapter record a language contributes to the
// engine. Languages without OO constructs (none of the seven wired here,
// but the hook exists per spec) may leave InterfaceNodeTypes/EnumNodeTypes
// empty and Superclass/Interfaces unset.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string

	ModuleNodeTypes    []string // root node kind for a parsed file
	FunctionNodeTypes  []string // free functions AND methods (disambiguated by nesting)
	ClassNodeTypes     []string // class/struct declarations
	InterfaceNodeTypes []string // interface/trait/protocol declarations
	EnumNodeTypes      []string // enum declarations
	FieldNodeTypes     []string // class/struct field declarations
	CallNodeTypes      []string // call-expression node kinds
	ImportNodeTypes    []string // import/use statement node kinds
	ParameterNodeTypes []string // function/method parameter node kinds
	PackageIndicators  []string // file names marking a directory as a package root

	Fields FieldNames

	// Primitives and standard-library wrapper types resolve to themselves
	// or to a canonical namespace-qualified name rather than through the
	// import map or registry (spec.md 4.5.1).
	Primitives     map[string]bool
	StdlibWrappers map[string]string // bare name -> canonical "namespace.Name"

	// ExtractImports parses one import/use statement node into zero or
	// more bindings.
	ExtractImports func(node *tree_sitter.Node, src []byte) []ImportBinding

	// ExtractTypeAnnotation returns the textual type carried by a type
	// field node (parameter type, variable annotation, return type).
	ExtractTypeAnnotation func(node *tree_sitter.Node, src []byte) string

	// ExtractLocals walks a function/method body and returns every local
	// binding it can see without descending into nested function
	// literals (their own scope is built separately): declarations,
	// assignments, and enhanced-for loop variables (spec.md 4.5, steps
	// 2-3, 5-6). Class-field bindings (step 4) are supplied by the
	// caller, not this hook, since they come from the enclosing class's
	// own definition rather than the body being scanned.
	ExtractLocals func(bodyNode *tree_sitter.Node, src []byte) []LocalBinding
}

// LocalBinding is one observation ExtractLocals makes about a name bound
// in a function/method body, before type resolution.
type LocalBinding struct {
	Name string

	// TypeAnnotation is the declared type text, if the binding carries
	// one (parameter type, annotated local). Empty if inferred only from
	// an initializer.
	TypeAnnotation string

	// ConstructorCallee is the callee name of a "new Type(...)" / "Type()"
	// initializer, when the RHS is recognizably a constructor call.
	ConstructorCallee string

	// FieldAccessChain holds a dotted initializer like "a.b.c" so the
	// engine can recursively resolve it (spec.md 4.5.2's chained
	// expression rule), split into segments.
	FieldAccessChain []string

	// IsForEachElement marks this binding as a for-each loop variable;
	// IterableName is the variable being iterated, used to look up an
	// element type from a generic receiver when available.
	IsForEachElement bool
	IterableName     string
}

// ClassLikeLabel reports the graph label (Class/Interface/Enum) a
// declaration node of this language maps to, based on the declaration's
// node kind alone.
func (s *LanguageSpec) ClassLikeLabel(nodeKind string) (string, bool) {
	for _, k := range s.InterfaceNodeTypes {
		if k == nodeKind {
			return "Interface", true
		}
	}
	for _, k := range s.EnumNodeTypes {
		if k == nodeKind {
			return "Enum", true
		}
	}
	for _, k := range s.ClassNodeTypes {
		if k == nodeKind {
			return "Class", true
		}
	}
	return "", false
}

// IsDefNode reports whether nodeKind is any kind of definition this
// language's spec knows about (function, class, interface, enum).
func (s *LanguageSpec) IsDefNode(nodeKind string) bool {
	all := [][]string{s.FunctionNodeTypes, s.ClassNodeTypes, s.InterfaceNodeTypes, s.EnumNodeTypes}
	for _, set := range all {
		for _, k := range set {
			if k == nodeKind {
				return true
			}
		}
	}
	return false
}

var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry, keyed by every
// extension it claims.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec registered for a file extension
// (e.g. ".go"), or nil if none is registered.
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a Language tag.
func ForLanguage(l Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == l {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language registered for an extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := registry[ext]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}
