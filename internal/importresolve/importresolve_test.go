package importresolve

import (
	"testing"

	"github.com/cgraph/cgraph/internal/lang"
	"github.com/cgraph/cgraph/internal/registry"
)

func TestResolveGoInternalImport(t *testing.T) {
	reg := registry.New()
	reg.RegisterModuleFile("myproj.internal.helper", "internal/helper/helper.go")

	p := New("myproj", reg)
	aliases, externals := p.Resolve("myproj.cmd.main", "cmd/main.go", lang.Go,
		[]lang.ImportBinding{{LocalName: "helper", Origin: "myproj/internal/helper"}})

	a, ok := aliases["helper"]
	if !ok || len(a) != 1 {
		t.Fatalf("expected helper alias, got %v", aliases)
	}
	if a[0].IsExternal {
		t.Error("expected internal import")
	}
	if a[0].TargetQN != "myproj.internal.helper" {
		t.Errorf("unexpected target QN: %s", a[0].TargetQN)
	}
	if len(externals) != 0 {
		t.Errorf("expected no externals, got %v", externals)
	}
}

func TestResolveGoExternalImport(t *testing.T) {
	p := New("myproj", registry.New())
	aliases, externals := p.Resolve("myproj.cmd.main", "cmd/main.go", lang.Go,
		[]lang.ImportBinding{{LocalName: "fmt", Origin: "fmt"}})

	a := aliases["fmt"][0]
	if !a.IsExternal {
		t.Error("expected fmt to resolve external")
	}
	if len(externals) != 1 || externals[0].Name != "fmt" {
		t.Errorf("unexpected externals: %v", externals)
	}
}

func TestResolveJSRelativeImport(t *testing.T) {
	p := New("myproj", registry.New())
	aliases, _ := p.Resolve("myproj.src.app", "src/app.js", lang.JavaScript,
		[]lang.ImportBinding{{LocalName: "util", Origin: "./lib/util"}})

	a := aliases["util"][0]
	if a.TargetQN != "myproj.src.lib.util" {
		t.Errorf("unexpected relative resolution: %s", a.TargetQN)
	}
}

func TestResolveWildcardImport(t *testing.T) {
	p := New("myproj", registry.New())
	aliases, _ := p.Resolve("myproj.pkg.mod", "pkg/mod.py", lang.Python,
		[]lang.ImportBinding{{Origin: "myproj.pkg.helpers", Wildcard: true}})

	w, ok := aliases[WildcardKey]
	if !ok || len(w) != 1 {
		t.Fatalf("expected wildcard alias, got %v", aliases)
	}
}

func TestResolveJavaStaticImport(t *testing.T) {
	p := New("myproj", registry.New())
	aliases, _ := p.Resolve("myproj.App", "App.java", lang.Java,
		[]lang.ImportBinding{{LocalName: "assertEquals", Origin: "org.junit.Assert", Member: "assertEquals", StaticCall: true}})

	a := aliases["assertEquals"][0]
	if a.TargetQN != "org.junit.Assert.assertEquals" {
		t.Errorf("unexpected static import resolution: %s", a.TargetQN)
	}
	if !a.IsExternal {
		t.Error("expected external classification for org.junit")
	}
}
