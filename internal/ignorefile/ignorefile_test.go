package ignorefile

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	src := `# comment
vendor
node_modules

!vendor/keep-this
`
	rules, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !rules.Exclude["vendor"] {
		t.Error("expected vendor excluded")
	}
	if !rules.Exclude["node_modules"] {
		t.Error("expected node_modules excluded")
	}
	if !rules.Unignore["vendor/keep-this"] {
		t.Error("expected vendor/keep-this unignored")
	}
}

func TestExcludesHonorsUnignore(t *testing.T) {
	rules, _ := Parse(strings.NewReader("build\n!build\n"))
	if rules.Excludes("build") {
		t.Error("expected re-include to win within the same ruleset")
	}
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	rules, err := Load("/nonexistent/path/.cgrignore")
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if len(rules.Exclude) != 0 {
		t.Error("expected empty rules for missing file")
	}
}

func TestMergePrecedence(t *testing.T) {
	base, _ := Parse(strings.NewReader("vendor\n"))
	extra, _ := Parse(strings.NewReader("!vendor\n"))
	merged := base.Merge(extra)
	if merged.Excludes("vendor") {
		t.Error("expected extra rules to override base exclusion")
	}
}
