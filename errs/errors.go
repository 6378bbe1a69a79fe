// Package errs defines the typed error taxonomy surfaced by every operation
// in this module (see spec.md §7). It follows the same shape as
// Govetachun-Go-DB's pkg/errors.DatabaseError: a code/kind, a message, and an
// optional wrapped cause.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error the way callers of the request gateway need to
// branch on: durability questions (io, corruption) vs. caller mistakes
// (invalid_argument, not_found) vs. lifecycle questions (closed,
// not_initialized).
type Kind string

const (
	NotInitialized  Kind = "not_initialized"
	AlreadyExists   Kind = "already_exists"
	NotFound        Kind = "not_found"
	IO              Kind = "io"
	Corruption      Kind = "corruption"
	Codec           Kind = "codec"
	Capacity        Kind = "capacity"
	InvalidArgument Kind = "invalid_argument"
	Closed          Kind = "closed"
	Timeout         Kind = "timeout"
)

// Error is the concrete error type returned by every package in this module.
type Error struct {
	Kind    Kind
	Op      string // operation name, e.g. "insert", "search"
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s (%v)", e.Op, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap builds an *Error around cause, preserving it for errors.Is/As.
func Wrap(kind Kind, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
