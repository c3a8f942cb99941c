// Package ignorefile parses the repository .cgrignore format (spec.md 6.3):
// blank lines and #-comments are skipped, a plain line excludes a path
// segment, and a leading "!" re-includes one. Matching is against
// individual directory/file name segments, not full paths, and uses exact
// string equality — no glob semantics.
package ignorefile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Rules holds the exclude and re-include (unignore) segment sets parsed
// from a .cgrignore file.
type Rules struct {
	Exclude  map[string]bool
	Unignore map[string]bool
}

// Empty returns a Rules value with no patterns.
func Empty() *Rules {
	return &Rules{Exclude: map[string]bool{}, Unignore: map[string]bool{}}
}

// Load reads and parses a .cgrignore file at path. A missing file is not an
// error: it yields empty Rules, matching spec.md 4.1 ("ignore rules" are
// optional repository configuration, not a requirement).
func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads .cgrignore-format text from r.
func Parse(r io.Reader) (*Rules, error) {
	rules := Empty()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "!") {
			pattern := strings.TrimSpace(line[1:])
			if pattern != "" {
				rules.Unignore[pattern] = true
			}
			continue
		}
		rules.Exclude[line] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	return rules, nil
}

// Excludes reports whether a single path segment (a directory or file
// name, never a full path) should be skipped: it is excluded by a
// .cgrignore pattern and not re-included by a "!" pattern. The walker's
// built-in default excludes are not part of Rules and are not consulted.
func (r *Rules) Excludes(segment string) bool {
	if r == nil {
		return false
	}
	if r.Unignore[segment] {
		return false
	}
	return r.Exclude[segment]
}

// Unignores reports whether segment was explicitly re-included, letting a
// caller override an otherwise-default exclusion (e.g. a dot-prefixed
// directory) even when Excludes itself would return false.
func (r *Rules) Unignores(segment string) bool {
	if r == nil {
		return false
	}
	return r.Unignore[segment]
}

// Merge layers extra rules on top of the receiver's, with extra taking
// precedence on conflicts (last one registered wins). Within a single
// file line order does not matter: a segment listed both ways is
// re-included, since Excludes checks the "!" set first.
func (r *Rules) Merge(extra *Rules) *Rules {
	if extra == nil {
		return r
	}
	out := &Rules{Exclude: map[string]bool{}, Unignore: map[string]bool{}}
	for k := range r.Exclude {
		out.Exclude[k] = true
	}
	for k := range r.Unignore {
		out.Unignore[k] = true
	}
	for k := range extra.Exclude {
		out.Exclude[k] = true
		delete(out.Unignore, k)
	}
	for k := range extra.Unignore {
		out.Unignore[k] = true
		delete(out.Exclude, k)
	}
	return out
}
