// Package errs provides the structured error taxonomy of the price pipeline.
package errs

import (
	"errors"
	"strings"
)

// Kind identifies a pipeline error category.
type Kind string

const (
	// KindDuplicate marks content that was already processed. It is an outcome, not a failure.
	KindDuplicate Kind = "duplicate"
	// KindStructuralInvalid marks a file that fails shape validation.
	KindStructuralInvalid Kind = "structural_invalid"
	// KindOwnershipMismatch marks a folder/company disagreement or an unknown or inactive seller.
	KindOwnershipMismatch Kind = "ownership_mismatch"
	// KindItemInvalid marks a single item that fails field validation.
	KindItemInvalid Kind = "item_invalid"
	// KindTransientPublish marks a broker failure that survived every retry.
	KindTransientPublish Kind = "transient_publish"
	// KindReconciliation marks a failure while diffing, persisting or indexing a batch.
	KindReconciliation Kind = "reconciliation"
	// KindUnknown captures uncategorized failures.
	KindUnknown Kind = "unknown"
)

// E captures a categorized error with an optional cause.
type E struct {
	Kind    Kind
	Message string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope of the given kind.
func New(kind Kind, opts ...Option) *E {
	e := &E{Kind: kind}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithCause records the underlying error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// Error implements the error interface.
func (e *E) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.cause != nil {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// Unwrap exposes the underlying cause.
func (e *E) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches another *E of the same kind, so errors.Is(err, errs.New(errs.KindX)) works.
func (e *E) Is(target error) bool {
	var other *E
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind && other.Message == "" && other.cause == nil
}

// KindOf returns the kind of the first *E in the chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
