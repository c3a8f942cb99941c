package pipeline

import (
	"context"
	"path"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/parser"
)

// passImports re-walks each source file's import/use statements (spec.md
// 4.4), resolves them via internal/importresolve, records the resulting
// per-module map for the type-inference engine, and emits IMPORTS edges
// plus ExternalPackage stub nodes for origins outside the project.
// Grounded on the teacher's two-phase approach (collect raw import text
// in the structural pass, resolve after every module is registered) but
// simplified to a single re-parse pass over each module's source, since
// tree-sitter parsing is cheap relative to resolution.
func (p *Pipeline) passImports(ctx context.Context) {
	for moduleQN, relPath := range p.registeredModules() {
		spec := p.moduleLanguageSpec(moduleQN)
		if spec == nil {
			continue
		}
		absPath := path.Join(p.cfg.RepoPath, relPath)
		src, err := readFile(absPath)
		if err != nil {
			p.recordErr(err)
			continue
		}
		tree, err := parser.Parse(spec.Language, src)
		if err != nil {
			continue
		}
		bindings := collectImportBindings(tree.RootNode(), src, spec)
		tree.Close()

		m, externals := p.importProc.Resolve(moduleQN, relPath, spec.Language, bindings)

		p.mu.Lock()
		p.moduleImports[moduleQN] = m
		p.mu.Unlock()

		for localName, aliases := range m {
			if localName == importresolveWildcard {
				continue
			}
			for _, alias := range aliases {
				if alias.IsExternal {
					// Already covered by the externals loop below, which
					// dedups by package name; a per-alias edge here would
					// target the unresolved member path, not the stub.
					continue
				}
				targetLabel := "Module"
				if k, ok := p.reg.Kind(alias.TargetQN); ok {
					targetLabel = string(k)
				}
				p.upsertEdge(ctx, "Module", moduleQN, "IMPORTS", targetLabel, alias.TargetQN, map[string]any{"alias": localName})
			}
		}
		for _, ext := range externals {
			p.upsertNode(ctx, "ExternalPackage", ext.Name, map[string]any{"name": ext.Name})
			p.upsertEdge(ctx, "Module", moduleQN, "IMPORTS", "ExternalPackage", ext.Name, nil)
		}
	}
}

const importresolveWildcard = "*"

// registeredModules returns a module QN -> relative file path pair for
// every module that defines at least one class or function: the module
// list comes from classInfos/funcInfos and the path from the registry's
// module-file index. Modules with no definitions (re-export-only files,
// empty __init__.py) get no import pass.
func (p *Pipeline) registeredModules() map[string]string {
	out := make(map[string]string)
	for _, qn := range p.allModuleQNs() {
		if rel, ok := p.reg.ModuleFile(qn); ok {
			out[qn] = rel
		}
	}
	return out
}

func (p *Pipeline) allModuleQNs() []string {
	seen := map[string]bool{}
	var out []string
	add := func(qn string) {
		if !seen[qn] {
			seen[qn] = true
			out = append(out, qn)
		}
	}
	for _, ci := range p.classInfos {
		add(ci.ModuleQN)
	}
	for _, fi := range p.funcInfos {
		add(fi.ModuleQN)
	}
	return out
}

func (p *Pipeline) moduleLanguageSpec(moduleQN string) *lang.LanguageSpec {
	for _, ci := range p.classInfos {
		if ci.ModuleQN == moduleQN {
			return ci.Spec
		}
	}
	for _, fi := range p.funcInfos {
		if fi.ModuleQN == moduleQN {
			return fi.Spec
		}
	}
	return nil
}

func collectImportBindings(root *tree_sitter.Node, src []byte, spec *lang.LanguageSpec) []lang.ImportBinding {
	var out []lang.ImportBinding
	parser.Walk(root, func(node *tree_sitter.Node) bool {
		if containsString(spec.ImportNodeTypes, node.Kind()) {
			if spec.ExtractImports != nil {
				out = append(out, spec.ExtractImports(node, src)...)
			}
			return false
		}
		return true
	})
	return out
}
