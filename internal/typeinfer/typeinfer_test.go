package typeinfer

import (
	"testing"

	"github.com/cgraph/cgraph/internal/importresolve"
	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/registry"
)

func goSpec() *lang.LanguageSpec {
	return lang.ForLanguage(lang.Go)
}

func TestResolveTypeNamePrimitive(t *testing.T) {
	reg := registry.New()
	e := New(reg)

	qn, ok := e.ResolveTypeName("string", "proj.pkg", goSpec(), nil)
	if !ok || qn != "string" {
		t.Fatalf("expected primitive passthrough, got %q ok=%v", qn, ok)
	}
}

func TestResolveTypeNameStdlibWrapper(t *testing.T) {
	reg := registry.New()
	e := New(reg)

	qn, ok := e.ResolveTypeName("Context", "proj.pkg", goSpec(), nil)
	if !ok || qn != "context.Context" {
		t.Fatalf("expected context.Context, got %q ok=%v", qn, ok)
	}
}

func TestResolveTypeNameImportAlias(t *testing.T) {
	reg := registry.New()
	reg.Register("proj.db.Conn", registry.KindClass)
	e := New(reg)

	imports := importresolve.Map{"Conn": {{TargetQN: "proj.db.Conn"}}}
	qn, ok := e.ResolveTypeName("Conn", "proj.pkg", goSpec(), imports)
	if !ok || qn != "proj.db.Conn" {
		t.Fatalf("expected import-resolved QN, got %q ok=%v", qn, ok)
	}
}

func TestResolveTypeNameSamePackage(t *testing.T) {
	reg := registry.New()
	reg.Register("proj.pkg.Widget", registry.KindClass)
	e := New(reg)

	qn, ok := e.ResolveTypeName("Widget", "proj.pkg.file", goSpec(), nil)
	if !ok || qn != "proj.pkg.Widget" {
		t.Fatalf("expected same-package resolution, got %q ok=%v", qn, ok)
	}
}

func TestResolveTypeNameCrossModuleRanking(t *testing.T) {
	reg := registry.New()
	reg.Register("proj.pkg.a.Widget", registry.KindClass)
	reg.Register("proj.pkg.far.deep.Widget", registry.KindClass)
	e := New(reg)

	qn, ok := e.ResolveTypeName("Widget", "proj.pkg.caller", goSpec(), nil)
	if !ok {
		t.Fatal("expected a cross-module match")
	}
	if qn != "proj.pkg.a.Widget" {
		t.Errorf("expected closest module to win, got %s", qn)
	}
}

func TestResolveReceiverThisAndLocal(t *testing.T) {
	reg := registry.New()
	e := New(reg)

	vars := VariableTypeMap{"c": "proj.db.Conn"}
	qn, ok := e.ResolveReceiver("this", "proj.pkg.Self", "", "proj.pkg", goSpec(), vars, nil, nil)
	if !ok || qn != "proj.pkg.Self" {
		t.Fatalf("expected this-receiver resolution, got %q ok=%v", qn, ok)
	}

	qn, ok = e.ResolveReceiver("c", "", "", "proj.pkg", goSpec(), vars, nil, nil)
	if !ok || qn != "proj.db.Conn" {
		t.Fatalf("expected local-variable resolution, got %q ok=%v", qn, ok)
	}
}

func TestLookupMethodOwnAndInherited(t *testing.T) {
	reg := registry.New()
	reg.Register("proj.pkg.Base", registry.KindClass)
	reg.Register("proj.pkg.Base.save", registry.KindMethod)
	reg.Register("proj.pkg.Child", registry.KindClass)
	reg.SetParents("proj.pkg.Child", []string{"proj.pkg.Base"})
	e := New(reg)

	qn, ok := e.LookupMethod("proj.pkg.Child", "save")
	if !ok || qn != "proj.pkg.Base.save" {
		t.Fatalf("expected inherited method lookup, got %q ok=%v", qn, ok)
	}
}

func TestLookupMethodCycleGuard(t *testing.T) {
	reg := registry.New()
	reg.Register("proj.pkg.A", registry.KindClass)
	reg.Register("proj.pkg.B", registry.KindClass)
	reg.SetParents("proj.pkg.A", []string{"proj.pkg.B"})
	reg.SetParents("proj.pkg.B", []string{"proj.pkg.A"}) // malformed cycle
	e := New(reg)

	if _, ok := e.LookupMethod("proj.pkg.A", "missing"); ok {
		t.Fatal("expected lookup of a nonexistent method to fail, not hang")
	}
}

func TestResolveChainFieldAccess(t *testing.T) {
	reg := registry.New()
	reg.Register("proj.pkg.Widget", registry.KindClass)
	reg.Register("proj.pkg.Widget.inner", registry.KindFunction)
	e := New(reg)

	vars := VariableTypeMap{"w": "proj.pkg.Widget"}
	qn, ok := e.resolveChain([]string{"w", "inner"}, "proj.pkg", goSpec(), nil, vars, 0)
	if !ok || qn != "proj.pkg.Widget.inner" {
		t.Fatalf("expected chained resolution, got %q ok=%v", qn, ok)
	}
}

func TestResolveCallMemoizes(t *testing.T) {
	reg := registry.New()
	reg.Register("proj.pkg.Widget", registry.KindClass)
	reg.Register("proj.pkg.Widget.save", registry.KindMethod)
	e := New(reg)

	vars := VariableTypeMap{"w": "proj.pkg.Widget"}
	qn1, ok1 := e.ResolveCall("w", "save", "", "", "proj.pkg", goSpec(), vars, nil, nil)
	qn2, ok2 := e.ResolveCall("w", "save", "", "", "proj.pkg", goSpec(), vars, nil, nil)
	if !ok1 || !ok2 || qn1 != qn2 {
		t.Fatalf("expected stable memoized result, got (%q,%v) then (%q,%v)", qn1, ok1, qn2, ok2)
	}
}
