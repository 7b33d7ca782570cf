package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures for callers.
type ErrorKind string

const (
	// KindUpstreamUnavailable covers network, timeout, and non-2xx failures
	// from the search or generation provider.
	KindUpstreamUnavailable ErrorKind = "upstream_unavailable"
	// KindSchemaViolation is returned when structured stage output fails to
	// parse or validate.
	KindSchemaViolation ErrorKind = "schema_violation"
	// KindEmptyUpstreamResult is returned when the research stage yields no
	// text.
	KindEmptyUpstreamResult ErrorKind = "empty_upstream_result"
	// KindInternal is the fallback for failures outside the taxonomy.
	KindInternal ErrorKind = "internal"
)

// Error is a stage failure annotated with its kind and originating operation.
// Every stage error aborts the remaining pipeline; no stage retries.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the error kind, defaulting to KindInternal.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

func upstreamErr(op string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Op: op, Err: err}
}

func schemaErr(op string, err error) *Error {
	return &Error{Kind: KindSchemaViolation, Op: op, Err: err}
}

func emptyResultErr(op string, err error) *Error {
	return &Error{Kind: KindEmptyUpstreamResult, Op: op, Err: err}
}
