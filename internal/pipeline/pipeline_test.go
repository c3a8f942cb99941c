package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cgraph/cgraph/internal/store"
)

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	mustWrite := func(rel, content string) {
		full := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}

	mustWrite("pkg/widget.go", `package pkg

type Widget struct {
	Name string
}

func (w *Widget) Describe() string {
	return w.Name
}

func NewWidget(name string) *Widget {
	w := &Widget{Name: name}
	return w
}
`)
	mustWrite("cmd/main.go", `package main

import "demo/pkg"

func main() {
	w := pkg.NewWidget("demo")
	w.Describe()
}
`)
}

func TestRunIndexesGoFixture(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close(context.Background())
	if err := s.UseProject("demo", dir); err != nil {
		t.Fatalf("UseProject: %v", err)
	}

	p := New(s, RunConfig{RepoPath: dir, ProjectName: "demo"})
	result, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.FilesParsed != 2 {
		t.Errorf("expected 2 parsed files, got %d", result.FilesParsed)
	}

	widget, err := s.FindNode("Class", "demo.pkg.widget.Widget")
	if err != nil || widget == nil {
		t.Fatalf("expected Widget class node, err=%v node=%v", err, widget)
	}

	newWidget, err := s.FindNode("Function", "demo.pkg.widget.NewWidget")
	if err != nil || newWidget == nil {
		t.Fatalf("expected NewWidget function node, err=%v node=%v", err, newWidget)
	}

	describe, err := s.FindNode("Method", "demo.pkg.widget.Widget.Describe")
	if err != nil || describe == nil {
		t.Fatalf("expected Describe method node, err=%v node=%v", err, describe)
	}
}

func TestProjectNameFromPathSlugifies(t *testing.T) {
	got := ProjectNameFromPath("/home/user/my-repo")
	if got != "home-user-my-repo" {
		t.Errorf("unexpected slug: %s", got)
	}
}

// writeInterfaceFixture lays out a single-module Go package exercising
// paths writeFixture's cross-file factory-call scenario does not: a
// same-module bare function CALLS, an external-package IMPORTS, and Go's
// structural interface satisfaction (IMPLEMENTS + the resulting
// OVERRIDES edge).
func writeInterfaceFixture(t *testing.T, dir string) {
	t.Helper()
	full := filepath.Join(dir, "pkg", "greeter.go")
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := `package pkg

import "fmt"

type Greeter interface {
	Greet() string
}

type English struct{}

func (e *English) Greet() string {
	return "hello"
}

func Shout(msg string) string {
	fmt.Println(msg)
	return msg
}

func Run() string {
	return Shout("hi")
}
`
	if err := os.WriteFile(full, []byte(src), 0o644); err != nil {
		t.Fatalf("write greeter.go: %v", err)
	}
}

func TestRunResolvesSameModuleCall(t *testing.T) {
	dir := t.TempDir()
	writeInterfaceFixture(t, dir)

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close(context.Background())
	if err := s.UseProject("demo", dir); err != nil {
		t.Fatalf("UseProject: %v", err)
	}

	p := New(s, RunConfig{RepoPath: dir, ProjectName: "demo"})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	ok, err := s.EdgeExists("demo.pkg.greeter.Run", "CALLS", "demo.pkg.greeter.Shout")
	if err != nil {
		t.Fatalf("EdgeExists: %v", err)
	}
	if !ok {
		t.Error("expected Run -CALLS-> Shout edge")
	}
}

func TestRunEmitsImportsAndExternalPackage(t *testing.T) {
	dir := t.TempDir()
	writeInterfaceFixture(t, dir)

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close(context.Background())
	if err := s.UseProject("demo", dir); err != nil {
		t.Fatalf("UseProject: %v", err)
	}

	p := New(s, RunConfig{RepoPath: dir, ProjectName: "demo"})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	pkgNode, err := s.FindNode("ExternalPackage", "fmt")
	if err != nil || pkgNode == nil {
		t.Fatalf("expected fmt ExternalPackage node, err=%v node=%v", err, pkgNode)
	}
	ok, err := s.EdgeExists("demo.pkg.greeter", "IMPORTS", "fmt")
	if err != nil {
		t.Fatalf("EdgeExists: %v", err)
	}
	if !ok {
		t.Error("expected Module -IMPORTS-> fmt ExternalPackage edge")
	}
}

func TestRunEmitsGoImplementsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	writeInterfaceFixture(t, dir)

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close(context.Background())
	if err := s.UseProject("demo", dir); err != nil {
		t.Fatalf("UseProject: %v", err)
	}

	p := New(s, RunConfig{RepoPath: dir, ProjectName: "demo"})
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	implements, err := s.EdgeExists("demo.pkg.greeter.English", "IMPLEMENTS", "demo.pkg.greeter.Greeter")
	if err != nil {
		t.Fatalf("EdgeExists IMPLEMENTS: %v", err)
	}
	if !implements {
		t.Error("expected English -IMPLEMENTS-> Greeter edge")
	}

	overrides, err := s.EdgeExists("demo.pkg.greeter.English.Greet", "OVERRIDES", "demo.pkg.greeter.Greeter.Greet")
	if err != nil {
		t.Fatalf("EdgeExists OVERRIDES: %v", err)
	}
	if !overrides {
		t.Error("expected English.Greet -OVERRIDES-> Greeter.Greet edge, the structural-satisfaction case")
	}
}

func TestRunIsIdempotentOnReRun(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir)

	s, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer s.Close(context.Background())
	if err := s.UseProject("demo", dir); err != nil {
		t.Fatalf("UseProject: %v", err)
	}

	for i := 0; i < 2; i++ {
		p := New(s, RunConfig{RepoPath: dir, ProjectName: "demo"})
		if _, err := p.Run(context.Background()); err != nil {
			t.Fatalf("Run #%d: %v", i, err)
		}
	}

	count, err := s.CountNodes("Class")
	if err != nil {
		t.Fatalf("CountNodes: %v", err)
	}
	if count != 1 {
		t.Errorf("expected re-run to upsert rather than duplicate, got %d Class nodes", count)
	}
}
