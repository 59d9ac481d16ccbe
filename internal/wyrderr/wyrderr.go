// Package wyrderr defines the typed error kinds shared across wyrd's
// library packages.
//
// Library code never logs; it returns one of these kinds (wrapped with
// fmt.Errorf("...: %w", err)) and lets the caller (cmd/wyrdctl, or the
// sync driver's own retry loop) decide what to do.
package wyrderr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure the way enumerates them.
type Kind uint8

const (
	_ Kind = iota
	MissingBlock
	CorruptNode
	RevisionMismatch
	Unauthorized
	Transport
	CardinalityViolation
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case MissingBlock:
		return "missing_block"
	case CorruptNode:
		return "corrupt_node"
	case RevisionMismatch:
		return "revision_mismatch"
	case Unauthorized:
		return "unauthorized"
	case Transport:
		return "transport"
	case CardinalityViolation:
		return "cardinality_violation"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a typed failure carrying the digest/cause it refers to, where
// applicable, plus an optionally wrapped underlying error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Missingf builds a MissingBlock error for the given digest string.
func Missingf(digest string) error {
	return New(MissingBlock, fmt.Sprintf("block %s not found in archive", digest), nil)
}

// Corruptf builds a CorruptNode error for the given digest string.
func Corruptf(digest string, err error) error {
	return New(CorruptNode, fmt.Sprintf("node %s failed to decode or re-hash", digest), err)
}

// Mismatchf builds a RevisionMismatch error.
func Mismatchf(expected, actual string) error {
	return New(RevisionMismatch, fmt.Sprintf("expected %s, register has %s", expected, actual), nil)
}
