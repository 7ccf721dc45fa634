// Package ruleerrors holds the taxonomy of validation failures the
// header processor can surface (spec.md §7), mirroring the shape of
// rusty-kaspa's `RuleError` enum from
// original_source/consensus/src/pipeline/header_processor/processor.rs
// call sites, built on top of github.com/pkg/errors the way every other
// error path in this repository is: a typed value that also carries a
// wrapped stack trace, checkable with errors.As.
package ruleerrors

import "github.com/pkg/errors"

// Kind identifies which rule a RuleError violates.
type Kind int

const (
	// KnownInvalid: the header's hash is already marked Invalid.
	KnownInvalid Kind = iota
	// ParentNotFound: a declared parent is unknown to the dependency
	// manager (distinct from MissingParents, which fires after
	// pruning-point filtering).
	ParentNotFound
	// MissingParents: after pruning-point filtering, no parent remains
	// at level 0.
	MissingParents
	// InvalidHeaderStructure: parent count, timestamp, or field bounds
	// violated.
	InvalidHeaderStructure
	// DifficultyMismatch: header bits disagree with the expected
	// retarget.
	DifficultyMismatch
	// InvalidProofOfWork: the PoW check failed.
	InvalidProofOfWork
	// MergesetTooLarge: the post-GHOSTDAG mergeset exceeds the
	// configured limit.
	MergesetTooLarge
	// StoreError: an underlying storage-engine I/O failure. Propagated
	// unchanged; never marks the header Invalid, since the submission
	// may be retried.
	StoreError
)

func (k Kind) String() string {
	switch k {
	case KnownInvalid:
		return "KnownInvalid"
	case ParentNotFound:
		return "ParentNotFound"
	case MissingParents:
		return "MissingParents"
	case InvalidHeaderStructure:
		return "InvalidHeaderStructure"
	case DifficultyMismatch:
		return "DifficultyMismatch"
	case InvalidProofOfWork:
		return "InvalidProofOfWork"
	case MergesetTooLarge:
		return "MergesetTooLarge"
	case StoreError:
		return "StoreError"
	default:
		return "UnknownRuleError"
	}
}

// RuleError is a typed, stack-trace-carrying validation failure.
type RuleError struct {
	kind  Kind
	cause error
}

// New creates a RuleError of the given kind wrapping a formatted message
// with a stack trace, in the style of errors.Errorf.
func New(kind Kind, format string, args ...interface{}) *RuleError {
	return &RuleError{kind: kind, cause: errors.Errorf(format, args...)}
}

// Wrap creates a RuleError of the given kind wrapping an existing error
// with a stack trace, in the style of errors.Wrapf.
func Wrap(kind Kind, err error, format string, args ...interface{}) *RuleError {
	return &RuleError{kind: kind, cause: errors.Wrapf(err, format, args...)}
}

// Kind returns which rule this error violates.
func (e *RuleError) Kind() Kind {
	return e.kind
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	return e.kind.String() + ": " + e.cause.Error()
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *RuleError) Unwrap() error {
	return e.cause
}

// IsInvalidating reports whether this error's Kind should cause the
// header's status to be persisted as Invalid (spec.md §7): everything
// except StoreError (a retryable I/O failure), ParentNotFound (held
// by the dependency manager, not a terminal verdict on this hash) and
// KnownInvalid (the hash is already marked Invalid).
func (e *RuleError) IsInvalidating() bool {
	switch e.kind {
	case StoreError, ParentNotFound, KnownInvalid:
		return false
	default:
		return true
	}
}
