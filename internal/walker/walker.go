// Package walker implements the repository walker (spec.md 4.1): a
// deterministic, ignore-aware enumeration of a repository's files,
// classified by extension into source / configurable-text / binary / skip.
package walker

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cgraph/cgraph/internal/ignorefile"
	"github.com/cgraph/cgraph/internal/lang"
)

// Kind classifies a discovered file for downstream passes.
type Kind int

const (
	// Source files have a registered language and are fed to the parser pool.
	Source Kind = iota
	// ConfigurableText files (YAML/JSON/TOML/INI/env) are recorded as File
	// nodes but never parsed for definitions.
	ConfigurableText
	// Binary or otherwise unreadable-as-text files are recorded as File
	// nodes with no further processing.
	Binary
	// Skip files are not emitted at all (ignored or filtered).
	Skip
)

// File describes one walked file.
type File struct {
	AbsPath  string
	RelPath  string // POSIX-style, relative to the repo root
	Language lang.Language
	Kind     Kind
	Size     int64
}

// defaultExcludes mirrors common build/VCS/dependency directories any
// repository in this corpus accumulates; callers extend this via Options.
var defaultExcludes = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	".venv": true, "venv": true, "env": true, "__pycache__": true,
	"node_modules": true, "bower_components": true,
	"target": true, "build": true, "dist": true, "out": true, "bin": true, "obj": true,
	".gradle": true, ".mvn": true, ".tox": true, ".nox": true,
	".pytest_cache": true, ".mypy_cache": true, ".ruff_cache": true,
	".idea": true, ".vscode": true, ".vs": true,
	"vendor": true, "coverage": true, "htmlcov": true,
}

var configurableTextExt = map[string]bool{
	".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true,
	".env": true, ".properties": true,
}

// treated as configurable-text JSON, excluding well-known tool-config/lock
// files that add noise without carrying project-specific configuration.
var ignoredJSON = map[string]bool{
	"package-lock.json": true, "composer.lock": true, "yarn.lock": true,
	"pnpm-lock.json": true,
}

// Options configures a single Walk call.
type Options struct {
	// Exclude adds directory/file-name segments to skip entirely, beyond
	// the built-in defaults.
	Exclude map[string]bool
	// Unignore re-includes a segment that would otherwise be excluded
	// (by defaults or by Exclude), per spec.md 4.1's two-set contract.
	Unignore map[string]bool
}

// FromIgnoreRules adapts parsed .cgrignore Rules into walker Options.
func FromIgnoreRules(r *ignorefile.Rules) Options {
	if r == nil {
		return Options{}
	}
	return Options{Exclude: r.Exclude, Unignore: r.Unignore}
}

func (o Options) excluded(name string) bool {
	if o.Unignore[name] {
		return false
	}
	if o.Exclude[name] {
		return true
	}
	if defaultExcludes[name] {
		return true
	}
	if strings.HasPrefix(name, ".") && name != "." && name != ".." {
		return true
	}
	return false
}

// Walk enumerates repoRoot and returns a deterministic, sorted stream of
// files. Symlinks are never followed (os.Lstat semantics, matching
// filepath.Walk's own default). Cancellation is honored between
// directories.
func Walk(ctx context.Context, repoRoot string, opts Options) ([]File, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, err
	}

	var files []File

	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == absRoot {
			return nil
		}

		name := info.Name()
		if info.IsDir() {
			if opts.excluded(name) {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip symlinks explicitly (Lstat-based info already reports the
		// link itself rather than following it, but be defensive).
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}

		if opts.excluded(name) {
			return nil
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		files = append(files, classify(path, rel, name, info.Size()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

func classify(absPath, relPath, name string, size int64) File {
	ext := filepath.Ext(name)

	if l, ok := lang.LanguageForExtension(ext); ok {
		return File{AbsPath: absPath, RelPath: relPath, Language: l, Kind: Source, Size: size}
	}

	if ext == ".json" && !ignoredJSON[name] {
		return File{AbsPath: absPath, RelPath: relPath, Kind: ConfigurableText, Size: size}
	}
	if configurableTextExt[ext] {
		return File{AbsPath: absPath, RelPath: relPath, Kind: ConfigurableText, Size: size}
	}

	if ext == "" || looksBinaryExt(ext) {
		return File{AbsPath: absPath, RelPath: relPath, Kind: Binary, Size: size}
	}

	// Unknown extension: spec.md 4.1 says emit as non-source rather than
	// skip, so later passes can still account for it as a plain File node.
	return File{AbsPath: absPath, RelPath: relPath, Kind: Binary, Size: size}
}

var binaryExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".pdf": true,
	".zip": true, ".tar": true, ".gz": true, ".so": true, ".dll": true, ".dylib": true,
	".class": true, ".jar": true, ".o": true, ".a": true, ".exe": true, ".bin": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true,
}

func looksBinaryExt(ext string) bool {
	return binaryExt[ext]
}
