package walker

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/cgraph/cgraph/internal/lang"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkClassifiesAndSortsDeterministically(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package main\n")
	writeFile(t, dir, "config.yaml", "a: 1\n")
	writeFile(t, dir, "logo.png", "binarydata")
	writeFile(t, dir, "vendor/dep.go", "package dep\n")

	files, err := Walk(context.Background(), dir, Options{})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	var gotVendor bool
	byRel := map[string]File{}
	for _, f := range files {
		byRel[f.RelPath] = f
		if f.RelPath == "vendor/dep.go" {
			gotVendor = true
		}
	}
	if gotVendor {
		t.Error("expected vendor/ to be excluded by default")
	}
	if byRel["main.go"].Kind != Source || byRel["main.go"].Language != lang.Go {
		t.Errorf("main.go misclassified: %+v", byRel["main.go"])
	}
	if byRel["config.yaml"].Kind != ConfigurableText {
		t.Errorf("config.yaml misclassified: %+v", byRel["config.yaml"])
	}
	if byRel["logo.png"].Kind != Binary {
		t.Errorf("logo.png misclassified: %+v", byRel["logo.png"])
	}
	if !sort.SliceIsSorted(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath }) {
		t.Errorf("expected files sorted by RelPath, got %+v", files)
	}
}

func TestWalkUnignoreReincludesExcludedDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "vendor/dep.go", "package dep\n")

	files, err := Walk(context.Background(), dir, Options{Unignore: map[string]bool{"vendor": true}})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	found := false
	for _, f := range files {
		if f.RelPath == "vendor/dep.go" {
			found = true
		}
	}
	if !found {
		t.Error("expected vendor/ to be re-included by Unignore")
	}
}

func TestWalkHonorsContextCancellation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package a\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Walk(ctx, dir, Options{})
	if err == nil {
		t.Error("expected Walk to report context cancellation")
	}
}
