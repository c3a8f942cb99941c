// Package importresolve implements the import processor (spec.md 4.4): for
// each module it turns the language-specific import/use statements the
// lang adapters extracted into a canonical local-name -> target-QN alias
// map, creating ExternalPackage references for anything that doesn't
// resolve to a module already known to the registry.
package importresolve

import (
	"path"
	"strings"

	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/registry"
)

// WildcardKey is the distinguished map key a wildcard/star import binds
// under, so later lookups can fall back to scanning the imported module's
// exported set (spec.md 4.4).
const WildcardKey = "*"

// Alias is one resolved import binding.
type Alias struct {
	TargetQN   string // module QN (or module QN + member) this local name refers to
	IsExternal bool   // true if TargetQN names an ExternalPackage, not an internal module
	Member     string // symbol within TargetQN this alias specifically names, if any
}

// Map is a module's local-name -> Alias table. Wildcard imports are
// additionally collected under WildcardKey; nothing in the pipeline
// expands them, so names brought in by a wildcard are not resolved.
type Map map[string][]Alias

// ExternalRef names an external package discovered while resolving a
// module's imports; the structural/import pass materializes these as
// ExternalPackage stub nodes.
type ExternalRef struct {
	Name string
}

// Processor resolves import origins against the project's namespace and
// the symbol registry's module-file index.
type Processor struct {
	ProjectName string
	Registry    *registry.Registry
}

// New creates a Processor bound to a project name and registry.
func New(projectName string, reg *registry.Registry) *Processor {
	return &Processor{ProjectName: projectName, Registry: reg}
}

// Resolve turns one module's extracted import bindings into an alias map
// plus the external packages it references. relFilePath is the module's
// repository-relative path (POSIX separators, with extension), needed to
// resolve relative JS/TS-style imports.
func (p *Processor) Resolve(moduleQN, relFilePath string, language lang.Language, bindings []lang.ImportBinding) (Map, []ExternalRef) {
	out := make(Map)
	var externals []ExternalRef
	seenExternal := map[string]bool{}

	for _, b := range bindings {
		candidate, isRelative := p.normalizeOrigin(relFilePath, language, b.Origin)

		targetQN, isExternal := p.classify(candidate, isRelative)
		if b.Member != "" {
			targetQN = targetQN + "." + b.Member
		} else if b.StaticCall && b.LocalName != "" {
			targetQN = targetQN + "." + b.LocalName
		}

		alias := Alias{TargetQN: targetQN, IsExternal: isExternal, Member: b.Member}

		if isExternal {
			name := externalPackageName(candidate)
			if !seenExternal[name] {
				seenExternal[name] = true
				externals = append(externals, ExternalRef{Name: name})
			}
		}

		if b.Wildcard {
			out[WildcardKey] = append(out[WildcardKey], alias)
			continue
		}
		if b.LocalName == "" {
			continue
		}
		out[b.LocalName] = append(out[b.LocalName], alias)
	}

	return out, externals
}

// normalizeOrigin converts a language-specific import path into a
// dot-separated candidate path in the project's QN namespace, and reports
// whether the origin was syntactically relative (only meaningful for
// JS/TS).
func (p *Processor) normalizeOrigin(relFilePath string, language lang.Language, origin string) (string, bool) {
	switch language {
	case lang.Go:
		dotted := strings.ReplaceAll(origin, "/", ".")
		if idx := strings.Index(dotted, p.ProjectName+"."); idx >= 0 {
			return dotted[idx:], false
		}
		if dotted == p.ProjectName {
			return dotted, false
		}
		return dotted, false

	case lang.Python:
		if strings.HasPrefix(origin, ".") {
			// Relative import: resolve against the importing package dir.
			return p.resolveRelative(relFilePath, strings.TrimLeft(origin, "."), strings.Count(origin, ".")), true
		}
		return origin, false

	case lang.JavaScript, lang.TypeScript:
		if strings.HasPrefix(origin, ".") {
			return p.resolveRelative(relFilePath, origin, 0), true
		}
		return origin, false

	case lang.Java:
		return origin, false

	case lang.Rust:
		dotted := strings.ReplaceAll(origin, "::", ".")
		dotted = strings.TrimPrefix(dotted, "crate.")
		if strings.HasPrefix(origin, "crate::") || strings.HasPrefix(origin, "self::") || strings.HasPrefix(origin, "super::") {
			return p.ProjectName + "." + strings.TrimPrefix(dotted, "self."), false
		}
		return dotted, false

	case lang.PHP:
		dotted := strings.ReplaceAll(origin, "\\", ".")
		dotted = strings.TrimPrefix(dotted, ".")
		return dotted, false

	default:
		return origin, false
	}
}

// resolveRelative joins a relative module specifier against the directory
// of the importing file and renders the result as a dotted QN path,
// matching internal/fqn's file-to-QN convention.
func (p *Processor) resolveRelative(relFilePath, spec string, dotCount int) string {
	dir := path.Dir(relFilePath)
	if dotCount > 1 {
		for i := 1; i < dotCount; i++ {
			dir = path.Dir(dir)
		}
	}
	joined := path.Clean(path.Join(dir, spec))
	joined = strings.TrimSuffix(joined, path.Ext(joined))
	parts := strings.Split(joined, "/")
	if len(parts) > 0 && (parts[len(parts)-1] == "index" || parts[len(parts)-1] == "__init__") {
		parts = parts[:len(parts)-1]
	}
	dotted := strings.Join(parts, ".")
	if dotted == "" || dotted == "." {
		return p.ProjectName
	}
	return p.ProjectName + "." + dotted
}

// classify decides whether a normalized candidate path names a module the
// registry already knows about (internal) or not (external), per
// spec.md 4.4's "record an ExternalPackage stub" rule.
func (p *Processor) classify(candidate string, forcedRelative bool) (string, bool) {
	if forcedRelative {
		return candidate, !p.moduleKnown(candidate)
	}
	if strings.HasPrefix(candidate, p.ProjectName+".") || candidate == p.ProjectName {
		if p.moduleKnown(candidate) {
			return candidate, false
		}
		// Looks internal by naming convention but the registry hasn't
		// seen it (not yet scanned, or genuinely absent); still treat as
		// internal per spec.md 4.4 ("import edges to internal modules"),
		// the import pass links it once the owning file is processed.
		return candidate, false
	}
	return candidate, true
}

func (p *Processor) moduleKnown(candidate string) bool {
	if p.Registry == nil {
		return false
	}
	_, ok := p.Registry.ModuleFile(candidate)
	return ok
}

// externalPackageName reduces a candidate path to the stable name an
// ExternalPackage stub is keyed on: the first path segment for slash/dot
// hierarchies, which is how Go module paths, npm package specifiers, and
// Java/PHP root namespaces are conventionally rooted.
func externalPackageName(candidate string) string {
	parts := strings.SplitN(candidate, ".", 2)
	return parts[0]
}
