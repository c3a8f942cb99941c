// Package runerr distinguishes the five-way error taxonomy spec.md §7
// assigns to pipeline failures, as typed sentinel-wrapping errors callers
// can test for with errors.As/errors.Is rather than string matching.
package runerr

import "fmt"

// Kind identifies which of the five error categories in spec.md §7 an
// error belongs to, and implicitly its propagation policy.
type Kind string

const (
	// Config marks invalid paths, missing grammars, or an unreadable
	// ignore file. Propagates to the caller; the pipeline refuses to
	// start.
	Config Kind = "config"

	// Parse marks a Tree-sitter parse that returned error nodes.
	// Non-fatal: the pass continues with whatever nodes parsed cleanly.
	Parse Kind = "parse"

	// Resolution marks an unresolvable receiver, missing method, or
	// unresolvable type name. Non-fatal: the affected edge is dropped.
	Resolution Kind = "resolution"

	// Sink marks a persistent I/O failure against the ingestor. Fatal:
	// aborts the run after a final flush attempt.
	Sink Kind = "sink"

	// Invariant marks an assertion failure on the registry or AST shape.
	// Fatal: indicates a bug in the pipeline itself.
	Invariant Kind = "invariant"
)

// Error wraps an underlying error with its taxonomy Kind plus the
// location (file path or qualified name) spec.md §7 says user-visible
// failure summaries should include.
type Error struct {
	Kind     Kind
	Location string // file path or QN, when applicable; empty if not
	Err      error
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Location, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fatal reports whether this error's kind aborts the run per spec.md
// §7's propagation policy (Config and Sink are fatal at the call site
// that encounters them; Invariant aborts the entire run).
func (e *Error) Fatal() bool {
	switch e.Kind {
	case Config, Sink, Invariant:
		return true
	default:
		return false
	}
}

// ConfigError wraps err as a Config-kind error.
func ConfigError(location string, err error) error {
	return &Error{Kind: Config, Location: location, Err: err}
}

// ParseError wraps err as a Parse-kind error.
func ParseError(location string, err error) error {
	return &Error{Kind: Parse, Location: location, Err: err}
}

// ResolutionFailure wraps err as a Resolution-kind error.
func ResolutionFailure(location string, err error) error {
	return &Error{Kind: Resolution, Location: location, Err: err}
}

// SinkError wraps err as a Sink-kind error.
func SinkError(location string, err error) error {
	return &Error{Kind: Sink, Location: location, Err: err}
}

// InvariantViolation wraps err as an Invariant-kind error.
func InvariantViolation(location string, err error) error {
	return &Error{Kind: Invariant, Location: location, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind,
// matching the errors.Is protocol via a Kind-only comparison target.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if as, ok := err.(*Error); ok {
			e = as
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}
