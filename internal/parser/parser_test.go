package parser

import (
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cgraph/cgraph/internal/lang"
)

func TestParseGo(t *testing.T) {
	source := []byte(`package main

func Hello() string {
	return "hello"
}

func Add(a, b int) int {
	return a + b
}
`)
	tree, err := Parse(lang.Go, source)
	if err != nil {
		t.Fatalf("Parse Go: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		t.Fatal("root node is nil")
	}

	var funcCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_declaration" {
			funcCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_declarations, got %d", funcCount)
	}
}

func TestParsePython(t *testing.T) {
	source := []byte(`def greet(name):
    return f"Hello, {name}"

class MyClass:
    def method(self):
        pass
`)
	tree, err := Parse(lang.Python, source)
	if err != nil {
		t.Fatalf("Parse Python: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var funcCount, classCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			funcCount++
		case "class_definition":
			classCount++
		}
		return true
	})
	if funcCount != 2 {
		t.Errorf("expected 2 function_definitions, got %d", funcCount)
	}
	if classCount != 1 {
		t.Errorf("expected 1 class_definition, got %d", classCount)
	}
}

func TestParseJava(t *testing.T) {
	source := []byte(`package com.example;

public class Greeter {
    public String greet(String name) {
        return "Hello, " + name;
    }

    private void helper() {}
}
`)
	tree, err := Parse(lang.Java, source)
	if err != nil {
		t.Fatalf("Parse Java: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var classCount, methodCount int
	Walk(root, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "class_declaration":
			classCount++
		case "method_declaration":
			methodCount++
		}
		return true
	})
	if classCount != 1 {
		t.Errorf("expected 1 class_declaration, got %d", classCount)
	}
	if methodCount != 2 {
		t.Errorf("expected 2 method_declarations, got %d", methodCount)
	}
}

func TestAllLanguagesLoad(t *testing.T) {
	for _, l := range lang.AllLanguages() {
		if _, err := GetLanguage(l); err != nil {
			t.Errorf("GetLanguage(%s): %v", l, err)
		}
	}
}

func TestNodeText(t *testing.T) {
	source := []byte(`package main

func Hello() string {
	return "hello"
}
`)
	tree, err := Parse(lang.Go, source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	Walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() == "function_declaration" {
			nameNode := n.ChildByFieldName("name")
			if nameNode == nil {
				t.Error("function has no name node")
				return false
			}
			name := NodeText(nameNode, source)
			if name != "Hello" {
				t.Errorf("expected Hello, got %s", name)
			}
			return false
		}
		return true
	})
}

func TestHasErrorNodes(t *testing.T) {
	tree, err := Parse(lang.Go, []byte(`package main

func Hello( {
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	defer tree.Close()

	if !HasErrorNodes(tree) {
		t.Error("expected a parse error to be detected on malformed source")
	}
}
