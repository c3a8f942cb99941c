package lang_test

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/parser"
)

func TestForExtensionAndLanguageForExtension(t *testing.T) {
	spec := lang.ForExtension(".go")
	if spec == nil || spec.Language != lang.Go {
		t.Fatalf("expected Go spec for .go, got %v", spec)
	}
	l, ok := lang.LanguageForExtension(".py")
	if !ok || l != lang.Python {
		t.Fatalf("expected Python for .py, got %v ok=%v", l, ok)
	}
	if _, ok := lang.LanguageForExtension(".nope"); ok {
		t.Error("expected no language registered for .nope")
	}
}

func TestForLanguage(t *testing.T) {
	spec := lang.ForLanguage(lang.Rust)
	if spec == nil || spec.Language != lang.Rust {
		t.Fatalf("expected Rust spec, got %v", spec)
	}
}

func TestClassLikeLabelGoStructVsMethod(t *testing.T) {
	spec := lang.ForLanguage(lang.Go)
	if _, ok := spec.ClassLikeLabel("type_spec"); !ok {
		t.Error("expected type_spec to be class-like")
	}
	if spec.IsDefNode("function_declaration") != true {
		t.Error("expected function_declaration to be a def node")
	}
	if spec.IsDefNode("comment") {
		t.Error("did not expect comment to be a def node")
	}
}

func TestExtractImportsGo(t *testing.T) {
	src := []byte(`package main

import (
	"fmt"
	mrand "math/rand"
	_ "embed"
)
`)
	tree, err := parser.Parse(lang.Go, src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer tree.Close()

	spec := lang.ForLanguage(lang.Go)
	var bindings []lang.ImportBinding
	root := tree.RootNode()
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child != nil && child.Kind() == "import_declaration" {
			bindings = append(bindings, spec.ExtractImports(child, src)...)
		}
	}

	byLocal := map[string]lang.ImportBinding{}
	for _, b := range bindings {
		byLocal[b.LocalName] = b
	}
	if got, ok := byLocal["fmt"]; !ok || got.Origin != "fmt" {
		t.Errorf("expected plain fmt import, got %+v ok=%v", got, ok)
	}
	if got, ok := byLocal["mrand"]; !ok || got.Origin != "math/rand" {
		t.Errorf("expected aliased math/rand import, got %+v ok=%v", got, ok)
	}
	if _, ok := byLocal["_"]; ok {
		t.Error("blank import should not bind a symbol")
	}
}

func TestExtractLocalsGoConstructorCallee(t *testing.T) {
	src := []byte(`package pkg

func f() {
	w := NewWidget("demo")
	x := &Widget{Name: "x"}
	_ = w
	_ = x
}
`)
	tree, err := parser.Parse(lang.Go, src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	defer tree.Close()

	spec := lang.ForLanguage(lang.Go)
	fn := findFuncDecl(tree.RootNode())
	if fn == nil {
		t.Fatal("expected to find function_declaration")
	}
	body := fn.ChildByFieldName("body")
	if body == nil {
		t.Fatal("expected function body")
	}
	locals := spec.ExtractLocals(body, src)

	byName := map[string]lang.LocalBinding{}
	for _, l := range locals {
		byName[l.Name] = l
	}
	if got, ok := byName["w"]; !ok || got.ConstructorCallee != "NewWidget" {
		t.Errorf("expected w's callee NewWidget, got %+v ok=%v", got, ok)
	}
	if got, ok := byName["x"]; !ok || got.ConstructorCallee != "Widget" {
		t.Errorf("expected x's callee Widget (through &Widget{}), got %+v ok=%v", got, ok)
	}
}

func findFuncDecl(node *tree_sitter.Node) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	if node.Kind() == "function_declaration" {
		return node
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if found := findFuncDecl(node.Child(i)); found != nil {
			return found
		}
	}
	return nil
}
