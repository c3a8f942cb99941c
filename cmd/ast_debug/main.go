// Command ast_debug dumps the Tree-sitter parse tree for a source file,
// useful for checking a LanguageSpec's node-type tables against what the
// grammar actually produces for a given construct.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/parser"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: ast_debug <source-file>\n")
		os.Exit(1)
	}
	path := os.Args[1]
	ext := filepath.Ext(path)
	language, ok := lang.LanguageForExtension(ext)
	if !ok {
		fmt.Fprintf(os.Stderr, "error: no registered language for extension %q\n", ext)
		os.Exit(1)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	tree, err := parser.Parse(language, src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer tree.Close()

	fmt.Printf("=== %s (%s) ===\n", path, language)
	printNode(tree.RootNode(), src, 0)
}

func printNode(node *tree_sitter.Node, src []byte, depth int) {
	if node == nil {
		return
	}
	text := parser.NodeText(node, src)
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Printf("%s%s %q\n", strings.Repeat("  ", depth), node.Kind(), text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printNode(node.Child(i), src, depth+1)
	}
}
