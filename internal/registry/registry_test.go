package registry

import "testing"

func TestRegisterAndKind(t *testing.T) {
	r := New()
	r.Register("proj.pkg.Foo", KindClass)
	r.Register("proj.pkg.Foo.bar", KindMethod)

	k, ok := r.Kind("proj.pkg.Foo")
	if !ok || k != KindClass {
		t.Fatalf("expected Class, got %v ok=%v", k, ok)
	}
	if !r.Exists("proj.pkg.Foo.bar") {
		t.Error("expected method registered")
	}
}

func TestPrefixLookupAndMethodsOf(t *testing.T) {
	r := New()
	r.Register("proj.pkg.Foo", KindClass)
	r.Register("proj.pkg.Foo.bar", KindMethod)
	r.Register("proj.pkg.Foo.baz", KindMethod)
	r.Register("proj.pkg.Foo.field", KindFunction)

	methods := r.MethodsOf("proj.pkg.Foo")
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d: %v", len(methods), methods)
	}
	if methods[0] != "proj.pkg.Foo.bar" || methods[1] != "proj.pkg.Foo.baz" {
		t.Errorf("expected insertion order, got %v", methods)
	}
}

func TestByNameShortCircuit(t *testing.T) {
	r := New()
	r.Register("proj.a.Helper", KindFunction)
	r.Register("proj.b.Helper", KindFunction)

	names := r.ByName("Helper")
	if len(names) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(names))
	}
}

func TestCandidateModulesOnlyClassLike(t *testing.T) {
	r := New()
	r.Register("proj.a.Widget", KindClass)
	r.Register("proj.b.makeWidget", KindFunction) // simple name differs; irrelevant
	r.Register("proj.c.Widget", KindInterface)

	mods := r.CandidateModules("Widget")
	if len(mods) != 2 {
		t.Fatalf("expected 2 candidate modules, got %d: %v", len(mods), mods)
	}
}

func TestImportDistanceSiblingsCloserThanCousins(t *testing.T) {
	sibling := ImportDistance("proj.pkg.a.Foo", "proj.pkg.b")
	cousin := ImportDistance("proj.pkg.x.y.Foo", "proj.pkg.b")
	if sibling >= cousin {
		t.Errorf("expected sibling distance < cousin distance, got sibling=%d cousin=%d", sibling, cousin)
	}
}

func TestInsertionOrderTiebreak(t *testing.T) {
	r := New()
	r.Register("proj.a.Foo", KindClass)
	r.Register("proj.b.Foo", KindClass)

	if r.InsertionIndex("proj.a.Foo") >= r.InsertionIndex("proj.b.Foo") {
		t.Error("expected proj.a.Foo to have registered before proj.b.Foo")
	}
}

func TestSetParentsAndParents(t *testing.T) {
	r := New()
	r.SetParents("proj.a.Child", []string{"proj.a.Base", "proj.a.Mixin"})
	parents := r.Parents("proj.a.Child")
	if len(parents) != 2 || parents[0] != "proj.a.Base" {
		t.Errorf("unexpected parents: %v", parents)
	}
}
