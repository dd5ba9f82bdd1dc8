// Package simerr implements the fatal-error taxonomy this engine surfaces
// at call sites: Structural, Dimensional, Semantic, and Numeric failures
// (see DESIGN.md). All of them are ordinary Go errors; nothing in this
// package panics. The teacher repo prefixes its errors with the
// originating package name ("inmap.XXX: ..."); this keeps that habit and
// adds a Kind so callers that need to distinguish, say, a dimensional
// mismatch from a structural one can do so with errors.As instead of
// string matching.
package simerr

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal error per spec §7.
type Kind int

// The four fatal error categories.
const (
	Structural Kind = iota
	Dimensional
	Semantic
	Numeric
)

func (k Kind) String() string {
	switch k {
	case Structural:
		return "structural"
	case Dimensional:
		return "dimensional"
	case Semantic:
		return "semantic"
	case Numeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Error is a fatal error tagged with its taxonomy Kind and the operation
// that raised it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Structuralf builds a Structural error: unknown ids, duplicate keys,
// shape mismatches — the model graph doesn't hang together.
func Structuralf(op, format string, args ...interface{}) error {
	return newf(Structural, op, format, args...)
}

// Dimensionalf builds a Dimensional error: a quantity was supplied with
// the wrong physical dimensions for its role.
func Dimensionalf(op, format string, args ...interface{}) error {
	return newf(Dimensional, op, format, args...)
}

// Semanticf builds a Semantic error: the model is dimensionally and
// structurally fine but violates a modeling rule (negative rate, mismatched
// stoichiometry lengths, reservoir species ambiguity, and so on).
func Semanticf(op, format string, args ...interface{}) error {
	return newf(Semantic, op, format, args...)
}

// Numericf builds a Numeric error: a solver or propagator failed at run
// time.
func Numericf(op, format string, args ...interface{}) error {
	return newf(Numeric, op, format, args...)
}

// Is reports whether err, or any error it wraps, is a *Error of the given
// Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
