package pipeline

import (
	"context"
	"os"
	"path"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/cgraph/cgraph/internal/fqn"
	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/parser"
	"github.com/cgraph/cgraph/internal/registry"
	"github.com/cgraph/cgraph/internal/runerr"
	"github.com/cgraph/cgraph/internal/walker"
)

// classInfo is a registered Class/Interface/Enum awaiting the
// inheritance pass: its raw superclass/interfaces source text, not yet
// resolved to QNs (spec.md 4.6).
type classInfo struct {
	QN          string
	Kind        registry.Kind
	ModuleQN    string
	Language    lang.Language
	Spec        *lang.LanguageSpec
	Superclass  string
	Interfaces  []string
}

// funcInfo is a registered Function/Method awaiting the reference pass:
// its body node plus the context needed to build a variable type map and
// resolve call expressions (spec.md 4.5, 4.7).
type funcInfo struct {
	QN        string
	SelfQN    string // enclosing class QN, if this is a method; empty for free functions
	SuperQN   string // never assigned; passReferences reads the enclosing class's primary parent from the registry
	ModuleQN  string
	Language  lang.Language
	Spec      *lang.LanguageSpec
	Body      *tree_sitter.Node
	Source    []byte
	Params    []lang.LocalBinding
	Fields    typeinferClassFields
}

// typeinferClassFields aliases typeinfer.ClassFields to avoid importing
// typeinfer into this file's public surface redundantly; see
// references.go for its consumer.
type typeinferClassFields = map[string]string

// emitProjectAndFolders writes the Project node and every directory and
// File node the walk discovered, plus their containment edges, before
// any parsing happens (spec.md 4.1's file-system shape is independent of
// language). A directory carrying one of its language's package
// indicator files (go.mod, __init__.py, ...) is emitted as a Package
// node reached by CONTAINS_PACKAGE rather than a Folder reached by
// CONTAINS, per spec.md 3.2/3.3 — grounded on the teacher's
// classifyDirectories/buildDirNodesEdges (pipeline.go), which relabels
// the same directory node rather than inserting an extra layer between
// Folder and Module.
func (p *Pipeline) emitProjectAndFolders(ctx context.Context, files []walker.File, dirIsPackage map[string]bool) {
	p.upsertNode(ctx, "Project", p.cfg.ProjectName, map[string]any{"root_path": p.cfg.RepoPath})

	seenDirs := map[string]bool{"": true}

	ensureDir := func(dir string) {
		if dir == "." {
			dir = ""
		}
		if seenDirs[dir] {
			return
		}
		parts := []string{}
		if dir != "" {
			parts = strings.Split(dir, "/")
		}
		cur := ""
		parentKey := p.cfg.ProjectName
		parentLabel := "Project"
		for _, part := range parts {
			if cur == "" {
				cur = part
			} else {
				cur = cur + "/" + part
			}
			if seenDirs[cur] {
				parentKey, parentLabel = p.dirNodeRef(cur, dirIsPackage)
				continue
			}
			seenDirs[cur] = true
			label, edgeType := "Folder", "CONTAINS"
			dirQN := fqn.FolderQN(p.cfg.ProjectName, cur)
			if dirIsPackage[cur] {
				label, edgeType = "Package", "CONTAINS_PACKAGE"
				dirQN = fqn.PackageQN(p.cfg.ProjectName, cur)
			}
			p.upsertNode(ctx, label, dirQN, map[string]any{"path": cur, "name": part})
			p.upsertEdge(ctx, parentLabel, parentKey, edgeType, label, dirQN, nil)
			parentKey, parentLabel = dirQN, label
		}
	}

	for _, f := range files {
		if f.Kind == walker.Skip {
			continue
		}
		dir := path.Dir(f.RelPath)
		ensureDir(dir)

		if f.Kind == walker.Source {
			// Module nodes are emitted by passStructural once the file is
			// parsed, since a Module's QN must match fqn.ModuleQN and its
			// CONTAINS_MODULE source needs to know whether dir classified
			// as a Package.
			continue
		}

		parentKey, parentLabel := p.dirNodeRef(dir, dirIsPackage)
		label := "File"
		p.upsertNode(ctx, label, f.RelPath, map[string]any{"path": f.RelPath, "size": f.Size})
		p.upsertEdge(ctx, parentLabel, parentKey, "CONTAINS", label, f.RelPath, nil)
	}
}

// dirNodeRef returns the (key, label) of the node standing for dir: the
// Project itself for the repo root, otherwise the dir's Folder or
// Package QN per dirIsPackage.
func (p *Pipeline) dirNodeRef(dir string, dirIsPackage map[string]bool) (string, string) {
	if dir == "." || dir == "" {
		return p.cfg.ProjectName, "Project"
	}
	if dirIsPackage[dir] {
		return fqn.PackageQN(p.cfg.ProjectName, dir), "Package"
	}
	return fqn.FolderQN(p.cfg.ProjectName, dir), "Folder"
}

// classifyPackageDirs reports, for every directory the walk discovered,
// whether it carries a package indicator file for its source files'
// language (spec.md 3.2). Grounded on the teacher's classifyDirectories
// (pipeline.go): walk every ancestor directory of every file, then stat
// each language's indicator filenames inside it.
func (p *Pipeline) classifyPackageDirs(files []walker.File) map[string]bool {
	indicators := map[string]bool{}
	for _, l := range lang.AllLanguages() {
		if spec := lang.ForLanguage(l); spec != nil {
			for _, pi := range spec.PackageIndicators {
				indicators[pi] = true
			}
		}
	}

	allDirs := map[string]bool{}
	for _, f := range files {
		dir := path.Dir(f.RelPath)
		for dir != "." && dir != "" && !allDirs[dir] {
			allDirs[dir] = true
			dir = path.Dir(dir)
		}
	}

	dirIsPackage := make(map[string]bool, len(allDirs))
	for dir := range allDirs {
		absDir := path.Join(p.cfg.RepoPath, dir)
		for indicator := range indicators {
			if _, err := os.Stat(path.Join(absDir, indicator)); err == nil {
				dirIsPackage[dir] = true
				break
			}
		}
	}
	return dirIsPackage
}

// parsedFile holds one source file's parse result, carried from the
// parallel parse stage into the sequential registration/emission stage
// below.
type parsedFile struct {
	file walker.File
	spec *lang.LanguageSpec
	src  []byte
	tree *tree_sitter.Tree
}

// passStructural parses every source file and emits its Module,
// Class/Interface/Enum, Function, and Method nodes plus CONTAINS_MODULE/
// DEFINES/DEFINES_METHOD edges (spec.md 4.2, 4.4); Package nodes and
// CONTAINS_PACKAGE edges come from emitProjectAndFolders.
// Parsing (pure, per-file, no shared state) runs with bounded
// parallelism (the teacher's concurrent parse stage); registration and
// node/edge emission then run single-threaded, one file at a time in
// sourceFiles' order (walker.Walk already returns files sorted
// lexicographically), per spec.md 5's "per-file order is lexicographic"
// reproducibility guarantee. This also keeps every AddNode/AddEdge call
// against the shared, unsynchronized ingest.Buffer (internal/ingest)
// strictly single-writer for the whole pass, rather than racing 8
// parser-pool workers against it.
func (p *Pipeline) passStructural(ctx context.Context, files []walker.File, dirIsPackage map[string]bool) error {
	sourceFiles := make([]walker.File, 0, len(files))
	for _, f := range files {
		if f.Kind == walker.Source {
			sourceFiles = append(sourceFiles, f)
		}
	}

	parsed := make([]*parsedFile, len(sourceFiles))
	if err := runParallel(ctx, indices(len(sourceFiles)), 8, func(_ context.Context, i int) error {
		f := sourceFiles[i]
		spec := lang.ForLanguage(f.Language)
		if spec == nil {
			p.recordErr(runerr.ConfigError(f.RelPath, errUnsupportedLanguage(f.Language)))
			return nil
		}

		src, err := readFile(f.AbsPath)
		if err != nil {
			p.recordErr(runerr.ConfigError(f.RelPath, err))
			return nil
		}

		tree, err := parser.Parse(f.Language, src)
		if err != nil {
			p.recordErr(runerr.ParseError(f.RelPath, err))
			return nil
		}
		if parser.HasErrorNodes(tree) {
			p.recordErr(runerr.ParseError(f.RelPath, errPartialParse))
		}

		parsed[i] = &parsedFile{file: f, spec: spec, src: src, tree: tree}
		return nil
	}); err != nil {
		return err
	}

	for _, pf := range parsed {
		if pf == nil {
			continue
		}
		p.registerAndEmitModule(ctx, pf, dirIsPackage)
		// The tree stays open: funcInfo.Body nodes point into it and
		// passReferences reads them after this pass.
	}
	return nil
}

// registerAndEmitModule registers one parsed file's module QN and emits
// its Module node, CONTAINS_MODULE edge (from the Package or Folder
// emitProjectAndFolders already created for its directory), and every
// definition it holds. Called strictly sequentially from passStructural.
func (p *Pipeline) registerAndEmitModule(ctx context.Context, pf *parsedFile, dirIsPackage map[string]bool) {
	f := pf.file
	p.parsedCount++

	moduleQN := fqn.ModuleQN(p.cfg.ProjectName, f.RelPath)
	p.reg.Register(moduleQN, registry.KindModule)
	p.reg.RegisterModuleFile(moduleQN, f.RelPath)

	parentKey, parentLabel := p.dirNodeRef(path.Dir(f.RelPath), dirIsPackage)

	p.upsertNode(ctx, "Module", moduleQN, map[string]any{"path": f.RelPath, "language": string(f.Language)})
	p.upsertEdge(ctx, parentLabel, parentKey, "CONTAINS_MODULE", "Module", moduleQN, nil)

	p.walkDefinitions(ctx, pf.tree.RootNode(), pf.src, moduleQN, "", "", f.Language, pf.spec)
}

// indices returns [0, n).
func indices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// walkDefinitions recurses through one module's AST, registering every
// class-like and function-like definition it finds. enclosingClassQN is
// empty at module scope and set to the immediately enclosing class's QN
// while inside its body, so methods get DEFINES_METHOD instead of
// DEFINES and funcInfo.SelfQN is populated.
func (p *Pipeline) walkDefinitions(ctx context.Context, node *tree_sitter.Node, src []byte, moduleQN, enclosingClassQN, enclosingClassKind string, language lang.Language, spec *lang.LanguageSpec) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		kind := child.Kind()

		if classLabel, isClass := spec.ClassLikeLabel(kind); isClass {
			p.handleClassDef(ctx, child, src, moduleQN, goTypeSpecLabel(language, child, classLabel), language, spec, enclosingClassQN)
			continue
		}

		if containsString(spec.FunctionNodeTypes, kind) {
			p.handleFuncDef(ctx, child, src, moduleQN, language, spec, enclosingClassQN, enclosingClassKind)
			continue
		}

		p.walkDefinitions(ctx, child, src, moduleQN, enclosingClassQN, enclosingClassKind, language, spec)
	}
}

func (p *Pipeline) handleClassDef(ctx context.Context, node *tree_sitter.Node, src []byte, moduleQN, label string, language lang.Language, spec *lang.LanguageSpec, enclosingClassQN string) {
	nameNode := fieldOrChildByKind(node, spec.Fields.Name, "identifier", "type_identifier")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, src)
	var qn string
	if enclosingClassQN != "" {
		qn = enclosingClassQN + "." + name
	} else {
		qn = moduleQN + "." + name
	}

	kind := registry.KindClass
	switch label {
	case "Interface":
		kind = registry.KindInterface
	case "Enum":
		kind = registry.KindEnum
	}
	p.reg.Register(qn, kind)

	var superText string
	if spec.Fields.Superclass != "" {
		if n := node.ChildByFieldName(spec.Fields.Superclass); n != nil {
			superText = parser.NodeText(n, src)
		}
	}
	var ifaceTexts []string
	if spec.Fields.Interfaces != "" {
		if n := node.ChildByFieldName(spec.Fields.Interfaces); n != nil {
			ifaceTexts = splitTypeList(parser.NodeText(n, src))
		}
	}

	p.upsertNode(ctx, label, qn, map[string]any{"name": name})
	if enclosingClassQN != "" {
		p.upsertEdge(ctx, classLabelOf(p.reg, enclosingClassQN), enclosingClassQN, "DEFINES", label, qn, nil)
	} else {
		p.upsertEdge(ctx, "Module", moduleQN, "DEFINES", label, qn, nil)
	}

	p.mu.Lock()
	p.classInfos = append(p.classInfos, classInfo{
		QN: qn, Kind: kind, ModuleQN: moduleQN, Language: language, Spec: spec,
		Superclass: superText, Interfaces: ifaceTexts,
	})
	p.mu.Unlock()

	body := fieldOrChildByKind(node, spec.Fields.Body, "class_body", "block")
	if body == nil {
		// Go's type_spec has no "body" field of its own: name/type are its
		// only fields, and the struct_type/interface_type node sitting
		// under "type" holds the field_declaration/method_spec children
		// directly, so walk that instead.
		body = goTypeSpecBody(language, node)
	}
	if body != nil {
		p.walkDefinitions(ctx, body, src, moduleQN, qn, label, language, spec)
	}
}

// goTypeSpecBody returns the struct_type/interface_type node under a Go
// type_spec's "type" field, which walkDefinitions can recurse through to
// reach field_declaration and method_spec children.
func goTypeSpecBody(language lang.Language, node *tree_sitter.Node) *tree_sitter.Node {
	if language != lang.Go {
		return nil
	}
	return node.ChildByFieldName("type")
}

func (p *Pipeline) handleFuncDef(ctx context.Context, node *tree_sitter.Node, src []byte, moduleQN string, language lang.Language, spec *lang.LanguageSpec, enclosingClassQN, enclosingClassKind string) {
	nameNode := fieldOrChildByKind(node, spec.Fields.Name, "identifier", "property_identifier")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, src)

	isMethod := enclosingClassQN != ""
	var receiverType string
	if !isMethod && spec.Fields.Receiver != "" {
		if recvNode := node.ChildByFieldName(spec.Fields.Receiver); recvNode != nil {
			receiverType = goReceiverTypeName(parser.NodeText(recvNode, src))
		}
	}

	var qn string
	var selfQN string
	switch {
	case isMethod:
		qn = enclosingClassQN + "." + name
		selfQN = enclosingClassQN
	case receiverType != "":
		// Go-style method: attach under the same-module type if known.
		selfQN = moduleQN + "." + receiverType
		qn = selfQN + "." + name
	default:
		qn = moduleQN + "." + name
	}

	kind := registry.KindFunction
	if isMethod || receiverType != "" {
		kind = registry.KindMethod
	}
	p.reg.Register(qn, kind)

	var params []lang.LocalBinding
	if spec.Fields.Parameters != "" {
		if pnode := node.ChildByFieldName(spec.Fields.Parameters); pnode != nil {
			params = collectParams(pnode, src, spec)
		}
	}

	p.upsertNode(ctx, string(kind), qn, map[string]any{"name": name, "params": paramNames(params)})
	switch {
	case isMethod:
		p.upsertEdge(ctx, enclosingClassKind, enclosingClassQN, "DEFINES_METHOD", "Method", qn, nil)
	case receiverType != "":
		p.upsertEdge(ctx, "Class", selfQN, "DEFINES_METHOD", "Method", qn, nil)
	default:
		p.upsertEdge(ctx, "Module", moduleQN, "DEFINES", "Function", qn, nil)
	}

	body := fieldOrChildByKind(node, spec.Fields.Body, "block", "function_body")
	if body == nil {
		return
	}

	fields := p.classFieldsFor(selfQN)
	p.mu.Lock()
	p.funcInfos = append(p.funcInfos, funcInfo{
		QN: qn, SelfQN: selfQN, ModuleQN: moduleQN, Language: language, Spec: spec,
		Body: body, Source: src, Params: params, Fields: fields,
	})
	p.mu.Unlock()

	p.walkDefinitions(ctx, body, src, moduleQN, enclosingClassQN, enclosingClassKind, language, spec)
}

// classFieldsFor returns the field-name -> type-text map stored on a
// funcInfo. It always returns nil: field declarations are not collected,
// here or elsewhere.
func (p *Pipeline) classFieldsFor(classQN string) typeinferClassFields {
	if classQN == "" {
		return nil
	}
	return nil
}

func collectParams(paramsNode *tree_sitter.Node, src []byte, spec *lang.LanguageSpec) []lang.LocalBinding {
	var out []lang.LocalBinding
	for i := uint(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(i)
		if child == nil || !containsString(spec.ParameterNodeTypes, child.Kind()) {
			continue
		}
		nameNode := child.ChildByFieldName(spec.Fields.Name)
		if nameNode == nil {
			nameNode = firstChildOfKind(child, "identifier")
		}
		if nameNode == nil {
			continue
		}
		b := lang.LocalBinding{Name: parser.NodeText(nameNode, src)}
		if spec.Fields.Type != "" {
			if tnode := child.ChildByFieldName(spec.Fields.Type); tnode != nil && spec.ExtractTypeAnnotation != nil {
				b.TypeAnnotation = spec.ExtractTypeAnnotation(tnode, src)
			}
		}
		out = append(out, b)
	}
	return out
}

func paramNames(params []lang.LocalBinding) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, p.Name)
	}
	return out
}

func classLabelOf(reg *registry.Registry, qn string) string {
	k, _ := reg.Kind(qn)
	return string(k)
}

func splitTypeList(text string) []string {
	text = strings.Trim(text, "{}() \t\n")
	if text == "" {
		return nil
	}
	raw := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' })
	var out []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" && r != "implements" && r != "extends" {
			out = append(out, r)
		}
	}
	return out
}

func goReceiverTypeName(recv string) string {
	recv = strings.TrimSpace(recv)
	recv = strings.Trim(recv, "()")
	fields := strings.Fields(recv)
	if len(fields) == 0 {
		return ""
	}
	t := fields[len(fields)-1]
	return strings.TrimPrefix(t, "*")
}

func fieldOrChildByKind(node *tree_sitter.Node, fieldName string, kinds ...string) *tree_sitter.Node {
	if fieldName != "" {
		if n := node.ChildByFieldName(fieldName); n != nil {
			return n
		}
	}
	for _, k := range kinds {
		if n := firstChildOfKind(node, k); n != nil {
			return n
		}
	}
	return nil
}

func firstChildOfKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		c := node.Child(i)
		if c != nil && c.Kind() == kind {
			return c
		}
	}
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// goTypeSpecLabel refines a Go "type_spec" node's label: the grammar uses
// one node kind for both struct and interface declarations, so
// LanguageSpec.ClassLikeLabel alone always reports "Class". Inspecting
// the type_spec's "type" field distinguishes the two so Interface nodes
// land with the right label and passGoImplements' interface set isn't
// silently empty.
func goTypeSpecLabel(language lang.Language, node *tree_sitter.Node, fallback string) string {
	if language != lang.Go || fallback != "Class" {
		return fallback
	}
	if t := node.ChildByFieldName("type"); t != nil && t.Kind() == "interface_type" {
		return "Interface"
	}
	return fallback
}
