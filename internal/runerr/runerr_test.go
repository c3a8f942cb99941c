package runerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindPropagationPolicy(t *testing.T) {
	cases := []struct {
		kind  Kind
		fatal bool
	}{
		{Config, true},
		{Parse, false},
		{Resolution, false},
		{Sink, true},
		{Invariant, true},
	}
	for _, c := range cases {
		e := &Error{Kind: c.kind, Err: errors.New("boom")}
		if e.Fatal() != c.fatal {
			t.Errorf("%s: expected Fatal()=%v", c.kind, c.fatal)
		}
	}
}

func TestUnwrapAndIs(t *testing.T) {
	base := errors.New("disk full")
	wrapped := fmt.Errorf("flush failed: %w", SinkError("project.pkg.File", base))

	if !Is(wrapped, Sink) {
		t.Error("expected Is(wrapped, Sink) to be true through fmt.Errorf wrapping")
	}
	if Is(wrapped, Config) {
		t.Error("expected Is(wrapped, Config) to be false")
	}
	if !errors.Is(wrapped, base) {
		t.Error("expected errors.Is to see through to the base error")
	}
}

func TestErrorMessageIncludesLocation(t *testing.T) {
	err := ResolutionFailure("proj.pkg.Foo.bar", errors.New("unknown receiver"))
	got := err.Error()
	if got != "resolution: proj.pkg.Foo.bar: unknown receiver" {
		t.Errorf("unexpected message: %s", got)
	}
}
